package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

func TestFreightClassForDensity(t *testing.T) {
	tests := []struct {
		density float64
		want    string
	}{
		{60, "50"},
		{50, "50"},
		{40, "55"},
		{31, "60"},
		{25, "65"},
		{16, "70"},
		{12.5, "85"},
		{10.2, "92.5"},
		{8.5, "100"},
		{7, "125"},
		{5, "175"},
		{3, "250"},
		{1.5, "400"},
		{0.5, "500"},
		{0, "500"},
		{-1, "500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FreightClassForDensity(tt.density), "density %.1f", tt.density)
	}
}

func TestFreightClassForGroup(t *testing.T) {
	t.Run("declared class wins", func(t *testing.T) {
		item := testItem("SOFA-1", 250, 80, 1)
		item.Product.FreightClass = "125"
		g := ShipmentGroup{Type: GroupTypeLTL, Items: []LineItem{item}}
		assert.Equal(t, "125", FreightClassForGroup(g))
	})

	t.Run("derived from density otherwise", func(t *testing.T) {
		// 250 lb in a 60x10x8 in carton is about 90 lb/ft3
		item := testItem("DENSE-1", 250, 60, 1)
		g := ShipmentGroup{Type: GroupTypeLTL, Items: []LineItem{item}}
		assert.Equal(t, "50", FreightClassForGroup(g))
	})
}

func addrWithZip(zip string) valueobject.Address {
	return valueobject.MustNewAddress("Test", "1 Main St", "Town", "CA", zip, "US")
}

func TestZipPrefixDistance(t *testing.T) {
	t.Run("same three digit prefix is local", func(t *testing.T) {
		d := ZipPrefixDistance(addrWithZip("94105"), addrWithZip("94110"))
		assert.Equal(t, 50.0, d)
	})

	t.Run("same leading digit is regional", func(t *testing.T) {
		d := ZipPrefixDistance(addrWithZip("94105"), addrWithZip("90210"))
		assert.Equal(t, 400.0, d)
	})

	t.Run("cross country scales with zone spread", func(t *testing.T) {
		west := addrWithZip("94105")
		east := addrWithZip("10001")
		d := ZipPrefixDistance(west, east)
		assert.Greater(t, d, 400.0)
		assert.Equal(t, d, ZipPrefixDistance(east, west))
	})

	t.Run("unparseable codes fall back", func(t *testing.T) {
		d := ZipPrefixDistance(addrWithZip("SW1A"), addrWithZip("94105"))
		assert.Equal(t, 1500.0, d)
	})
}

func TestEstimateTransitDays(t *testing.T) {
	assert.Equal(t, 1, EstimateTransitDays(50))
	assert.Equal(t, 1, EstimateTransitDays(0))
	assert.Equal(t, 3, EstimateTransitDays(1100))
	assert.Equal(t, 8, EstimateTransitDays(10000))
}
