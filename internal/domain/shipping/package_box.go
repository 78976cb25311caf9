package shipping

import (
	"fmt"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

// Default carton used when a product declares no packaging and has no
// usable dimensions of its own.
const (
	DefaultBoxDimensionIn = 12.0
	DefaultBoxWeightLb    = 1.0
)

// PackageBox is one physical carton in a shipment.
type PackageBox struct {
	Label    string  `json:"label,omitempty"`
	LengthIn float64 `json:"length_in"`
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
	WeightLb float64 `json:"weight_lb"`

	DeclaredValue valueobject.Money `json:"declared_value"`
}

// VolumeCuFt returns the carton volume in cubic feet
func (b PackageBox) VolumeCuFt() float64 {
	return b.LengthIn * b.WidthIn * b.HeightIn / 1728.0
}

// LongestDimensionIn returns the longest side of the carton in inches
func (b PackageBox) LongestDimensionIn() float64 {
	longest := b.LengthIn
	if b.WidthIn > longest {
		longest = b.WidthIn
	}
	if b.HeightIn > longest {
		longest = b.HeightIn
	}
	return longest
}

// DerivePackages expands line items into the cartons that will ship.
// Declared product boxes are repeated once per unit. Items without
// declared boxes get one carton per unit sized from the product
// dimensions, falling back to the default carton when those are unset.
// The derivation is deterministic: the same items always produce the
// same cartons in the same order.
func DerivePackages(items []LineItem) []PackageBox {
	var boxes []PackageBox
	for _, li := range items {
		for unit := 0; unit < li.Quantity; unit++ {
			if len(li.Product.Boxes) > 0 {
				for i, declared := range li.Product.Boxes {
					box := declared
					box.Label = fmt.Sprintf("%s-%d", li.Product.SKU, unit*len(li.Product.Boxes)+i+1)
					if box.DeclaredValue.IsZero() {
						box.DeclaredValue = li.UnitPrice()
					}
					boxes = append(boxes, box)
				}
				continue
			}

			box := PackageBox{
				Label:         fmt.Sprintf("%s-%d", li.Product.SKU, unit+1),
				LengthIn:      li.Product.LengthIn,
				WidthIn:       li.Product.WidthIn,
				HeightIn:      li.Product.HeightIn,
				WeightLb:      li.Product.WeightLb,
				DeclaredValue: li.UnitPrice(),
			}
			if box.LengthIn <= 0 || box.WidthIn <= 0 || box.HeightIn <= 0 {
				box.LengthIn = DefaultBoxDimensionIn
				box.WidthIn = DefaultBoxDimensionIn
				box.HeightIn = DefaultBoxDimensionIn
			}
			if box.WeightLb <= 0 {
				box.WeightLb = DefaultBoxWeightLb
			}
			boxes = append(boxes, box)
		}
	}
	return boxes
}

// TotalWeightLb sums carton weights in pounds
func TotalWeightLb(boxes []PackageBox) float64 {
	var total float64
	for _, b := range boxes {
		total += b.WeightLb
	}
	return total
}

// TotalVolumeCuFt sums carton volumes in cubic feet
func TotalVolumeCuFt(boxes []PackageBox) float64 {
	var total float64
	for _, b := range boxes {
		total += b.VolumeCuFt()
	}
	return total
}

// TotalDeclaredValue sums the declared value across cartons
func TotalDeclaredValue(boxes []PackageBox) valueobject.Money {
	total := valueobject.ZeroUSD()
	for _, b := range boxes {
		if b.DeclaredValue.IsZero() {
			continue
		}
		total, _ = total.Add(b.DeclaredValue)
	}
	return total
}
