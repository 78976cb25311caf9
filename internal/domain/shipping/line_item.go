package shipping

import (
	"github.com/google/uuid"
	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Product carries the shipping-relevant snapshot of a catalog product.
// The catalog itself is owned elsewhere; the engine only reads these fields.
type Product struct {
	ID       uuid.UUID
	SKU      string
	Name     string
	Category string

	WeightLb float64
	LengthIn float64
	WidthIn  float64
	HeightIn float64

	Price valueobject.Money

	GiftEligible       bool
	WhiteGloveEligible bool
	RequiresAssembly   bool

	// FreightClass is the declared NMFC class, if the product has one.
	// Blank means the class is derived from density at quote time.
	FreightClass string

	// Boxes are the declared shipping cartons for a single unit.
	// Empty means packaging is synthesized from the product dimensions.
	Boxes []PackageBox
}

// LongestDimensionIn returns the longest side of the product in inches
func (p Product) LongestDimensionIn() float64 {
	longest := p.LengthIn
	if p.WidthIn > longest {
		longest = p.WidthIn
	}
	if p.HeightIn > longest {
		longest = p.HeightIn
	}
	return longest
}

// LineItem is one cart line finalized for shipping calculation.
// It is treated as immutable: grouping and pricing never modify it.
type LineItem struct {
	Product  Product
	Quantity int

	// PriceOverride replaces the product price for this line when set
	PriceOverride *valueobject.Money

	// WhiteGloveSelected indicates the buyer opted into white-glove delivery
	WhiteGloveSelected bool

	// IsGift forces the item into a separate gift shipment
	IsGift bool
}

// UnitPrice returns the effective per-unit price for the line
func (li LineItem) UnitPrice() valueobject.Money {
	if li.PriceOverride != nil {
		return *li.PriceOverride
	}
	return li.Product.Price
}

// TotalValue returns quantity times the effective unit price
func (li LineItem) TotalValue() valueobject.Money {
	return li.UnitPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// UnitWeightLb returns the per-unit product weight in pounds
func (li LineItem) UnitWeightLb() float64 {
	return li.Product.WeightLb
}

// ItemsTotalValue sums the effective value of a set of line items
func ItemsTotalValue(items []LineItem) valueobject.Money {
	total := valueobject.ZeroUSD()
	for _, li := range items {
		total, _ = total.Add(li.TotalValue())
	}
	return total
}
