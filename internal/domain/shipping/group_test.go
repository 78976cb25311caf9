package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

func testItem(sku string, weightLb, longestIn float64, qty int) LineItem {
	price, _ := valueobject.NewMoneyUSDFromFloat(25)
	return LineItem{
		Product: Product{
			SKU:      sku,
			Name:     sku,
			WeightLb: weightLb,
			LengthIn: longestIn,
			WidthIn:  10,
			HeightIn: 8,
			Price:    price,
		},
		Quantity: qty,
	}
}

func TestGroupItems(t *testing.T) {
	rules := DefaultGroupingRules()

	t.Run("small items form a single main group", func(t *testing.T) {
		groups := GroupItems([]LineItem{
			testItem("CHAIR-1", 30, 24, 2),
			testItem("LAMP-1", 8, 18, 1),
		}, rules)

		require.Len(t, groups, 1)
		assert.Equal(t, GroupTypeMain, groups[0].Type)
		assert.Equal(t, "main-1", groups[0].ID)
		assert.Equal(t, 3, groups[0].ItemCount())
		assert.Len(t, groups[0].Boxes, 3)
	})

	t.Run("heavy item routes to freight", func(t *testing.T) {
		groups := GroupItems([]LineItem{
			testItem("LAMP-1", 8, 18, 1),
			testItem("SOFA-1", 250, 60, 1),
		}, rules)

		require.Len(t, groups, 2)
		assert.Equal(t, GroupTypeMain, groups[0].Type)
		assert.Equal(t, GroupTypeLTL, groups[1].Type)
		assert.Equal(t, "ltl-1", groups[1].ID)
		assert.Empty(t, groups[1].Boxes)
	})

	t.Run("oversized item routes to freight by dimension", func(t *testing.T) {
		groups := GroupItems([]LineItem{
			testItem("RUG-1", 40, 96, 1),
		}, rules)

		require.Len(t, groups, 1)
		assert.Equal(t, GroupTypeLTL, groups[0].Type)
	})

	t.Run("gift items always separate even when oversized", func(t *testing.T) {
		gift := testItem("SOFA-G", 250, 80, 1)
		gift.IsGift = true

		groups := GroupItems([]LineItem{
			testItem("LAMP-1", 8, 18, 1),
			gift,
		}, rules)

		require.Len(t, groups, 2)
		assert.Equal(t, GroupTypeMain, groups[0].Type)
		assert.Equal(t, GroupTypeGift, groups[1].Type)
		assert.Equal(t, "gift-1", groups[1].ID)
	})

	t.Run("empty cart produces no groups", func(t *testing.T) {
		assert.Empty(t, GroupItems(nil, rules))
	})

	t.Run("grouping is deterministic", func(t *testing.T) {
		items := []LineItem{
			testItem("A", 10, 10, 1),
			testItem("B", 300, 10, 1),
			testItem("C", 10, 90, 2),
		}
		first := GroupItems(items, rules)
		second := GroupItems(items, rules)
		assert.Equal(t, first, second)
	})
}

func TestGroupingRulesBoundary(t *testing.T) {
	rules := DefaultGroupingRules()

	// Items exactly at the limits stay parcel; only exceeding routes
	// to freight.
	atLimit := testItem("AT", 200, 70, 1)
	assert.False(t, rules.RequiresFreight(atLimit))

	overWeight := testItem("OW", 200.5, 10, 1)
	assert.True(t, rules.RequiresFreight(overWeight))

	overLength := testItem("OL", 10, 70.5, 1)
	assert.True(t, rules.RequiresFreight(overLength))
}

func TestShipmentGroupSelectedRate(t *testing.T) {
	cheap, _ := valueobject.NewMoneyUSDFromFloat(9.99)
	fast, _ := valueobject.NewMoneyUSDFromFloat(24.99)
	g := ShipmentGroup{
		RateOptions: []RateOption{
			{ID: "rate-1", Cost: cheap, EstimatedDays: 5},
			{ID: "rate-2", Cost: fast, EstimatedDays: 2},
		},
	}

	t.Run("defaults to first option", func(t *testing.T) {
		rate, ok := g.SelectedRate()
		require.True(t, ok)
		assert.Equal(t, "rate-1", rate.ID)
	})

	t.Run("honors explicit selection", func(t *testing.T) {
		g.SelectedRateID = "rate-2"
		rate, ok := g.SelectedRate()
		require.True(t, ok)
		assert.Equal(t, "rate-2", rate.ID)
	})

	t.Run("no options", func(t *testing.T) {
		empty := ShipmentGroup{}
		_, ok := empty.SelectedRate()
		assert.False(t, ok)
	})
}
