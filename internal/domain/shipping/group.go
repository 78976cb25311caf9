package shipping

import (
	"fmt"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

// GroupType identifies how a shipment group travels.
type GroupType string

const (
	GroupTypeGift GroupType = "gift"
	GroupTypeLTL  GroupType = "ltl"
	GroupTypeMain GroupType = "main"
)

func (t GroupType) String() string {
	return string(t)
}

func (t GroupType) IsValid() bool {
	switch t {
	case GroupTypeGift, GroupTypeLTL, GroupTypeMain:
		return true
	}
	return false
}

// GroupingRules are the thresholds that route items between parcel and
// freight handling.
type GroupingRules struct {
	// MaxParcelWeightLb is the per-unit weight above which an item must
	// ship as freight.
	MaxParcelWeightLb float64

	// MaxParcelDimensionIn is the longest-side length above which an
	// item must ship as freight.
	MaxParcelDimensionIn float64
}

// DefaultGroupingRules returns the standard parcel carrier limits
func DefaultGroupingRules() GroupingRules {
	return GroupingRules{
		MaxParcelWeightLb:    200,
		MaxParcelDimensionIn: 70,
	}
}

// RequiresFreight reports whether an item exceeds parcel limits
func (r GroupingRules) RequiresFreight(li LineItem) bool {
	if li.UnitWeightLb() > r.MaxParcelWeightLb {
		return true
	}
	return li.Product.LongestDimensionIn() > r.MaxParcelDimensionIn
}

// ShipmentGroup is a set of items that quote and ship together.
type ShipmentGroup struct {
	ID    string
	Type  GroupType
	Items []LineItem

	// Boxes are the derived cartons. Empty for freight groups, which
	// quote from item weight and class rather than cartons.
	Boxes []PackageBox

	RateOptions    []RateOption
	SelectedRateID string
}

// TotalValue sums the effective value of the group's items
func (g ShipmentGroup) TotalValue() valueobject.Money {
	return ItemsTotalValue(g.Items)
}

// TotalWeightLb returns the group weight, preferring derived cartons
func (g ShipmentGroup) TotalWeightLb() float64 {
	if len(g.Boxes) > 0 {
		return TotalWeightLb(g.Boxes)
	}
	var total float64
	for _, li := range g.Items {
		total += li.UnitWeightLb() * float64(li.Quantity)
	}
	return total
}

// ItemCount returns the total unit count across items
func (g ShipmentGroup) ItemCount() int {
	var n int
	for _, li := range g.Items {
		n += li.Quantity
	}
	return n
}

// HasWhiteGlove reports whether any item opted into white-glove delivery
func (g ShipmentGroup) HasWhiteGlove() bool {
	for _, li := range g.Items {
		if li.WhiteGloveSelected {
			return true
		}
	}
	return false
}

// RequiresAssembly reports whether any item in the group needs assembly
// on delivery
func (g ShipmentGroup) RequiresAssembly() bool {
	for _, li := range g.Items {
		if li.Product.RequiresAssembly {
			return true
		}
	}
	return false
}

// SelectedRate returns the chosen rate, falling back to the first option
func (g ShipmentGroup) SelectedRate() (RateOption, bool) {
	if g.SelectedRateID != "" {
		for _, opt := range g.RateOptions {
			if opt.ID == g.SelectedRateID {
				return opt, true
			}
		}
	}
	if len(g.RateOptions) > 0 {
		return g.RateOptions[0], true
	}
	return RateOption{}, false
}

// GroupItems splits line items into shipment groups. Gift items always
// form their own group regardless of size. Remaining items that exceed
// the parcel limits go to a freight group; everything else ships as a
// single parcel group. Input order is preserved within each group and
// cartons are derived for the parcel groups.
func GroupItems(items []LineItem, rules GroupingRules) []ShipmentGroup {
	var gift, ltl, main []LineItem
	for _, li := range items {
		switch {
		case li.IsGift:
			gift = append(gift, li)
		case rules.RequiresFreight(li):
			ltl = append(ltl, li)
		default:
			main = append(main, li)
		}
	}

	var groups []ShipmentGroup
	appendGroup := func(t GroupType, members []LineItem) {
		if len(members) == 0 {
			return
		}
		g := ShipmentGroup{
			ID:    fmt.Sprintf("%s-%d", t, 1),
			Type:  t,
			Items: members,
		}
		if t != GroupTypeLTL {
			g.Boxes = DerivePackages(members)
		}
		groups = append(groups, g)
	}

	appendGroup(GroupTypeMain, main)
	appendGroup(GroupTypeLTL, ltl)
	appendGroup(GroupTypeGift, gift)
	return groups
}
