package shipping

import (
	"math"
	"strconv"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

// freightClassTier maps a minimum density in lb/ft3 to an NMFC class.
type freightClassTier struct {
	minDensityLbFt3 float64
	class           string
}

// Standard density-based NMFC classification, densest first.
var freightClassTable = []freightClassTier{
	{50, "50"},
	{35, "55"},
	{30, "60"},
	{22.5, "65"},
	{15, "70"},
	{12, "85"},
	{10, "92.5"},
	{8, "100"},
	{6, "125"},
	{4, "175"},
	{2, "250"},
	{1, "400"},
	{0, "500"},
}

// FreightClassForDensity returns the NMFC class for a shipment density
// in pounds per cubic foot. Non-positive densities map to the lowest
// class.
func FreightClassForDensity(density float64) string {
	for _, tier := range freightClassTable {
		if density >= tier.minDensityLbFt3 && tier.minDensityLbFt3 > 0 {
			return tier.class
		}
	}
	return freightClassTable[len(freightClassTable)-1].class
}

// DensityLbPerFt3 computes shipment density from cartons. Zero-volume
// cartons contribute weight only; a shipment with no volume has zero
// density.
func DensityLbPerFt3(boxes []PackageBox) float64 {
	volume := TotalVolumeCuFt(boxes)
	if volume <= 0 {
		return 0
	}
	return TotalWeightLb(boxes) / volume
}

// FreightClassForGroup resolves the class for a freight group. A class
// declared on any item wins; otherwise the class is derived from the
// density of cartons synthesized from the items.
func FreightClassForGroup(g ShipmentGroup) string {
	for _, li := range g.Items {
		if li.Product.FreightClass != "" {
			return li.Product.FreightClass
		}
	}
	return FreightClassForDensity(DensityLbPerFt3(DerivePackages(g.Items)))
}

// DistanceEstimator estimates origin-destination distance in miles.
// Implementations must be deterministic for identical inputs.
type DistanceEstimator func(origin, dest valueobject.Address) float64

// ZipPrefixDistance estimates distance from ZIP code structure. US ZIP
// prefixes are roughly geographic: a shared three-digit prefix means
// the same local area, a shared leading digit the same region, and the
// spread between leading digits approximates cross-country distance.
// Non-US or unparseable codes fall back to a continental estimate.
func ZipPrefixDistance(origin, dest valueobject.Address) float64 {
	const (
		localMiles       = 50
		regionalMiles    = 400
		perZoneMiles     = 350
		continentalMiles = 1500
	)

	oPrefix := origin.ZipPrefix(3)
	dPrefix := dest.ZipPrefix(3)
	if len(oPrefix) < 3 || len(dPrefix) < 3 {
		return continentalMiles
	}
	if oPrefix == dPrefix {
		return localMiles
	}

	oZone, err1 := strconv.Atoi(oPrefix[:1])
	dZone, err2 := strconv.Atoi(dPrefix[:1])
	if err1 != nil || err2 != nil {
		return continentalMiles
	}
	if oZone == dZone {
		return regionalMiles
	}
	return regionalMiles + perZoneMiles*math.Abs(float64(oZone-dZone))
}

// EstimateTransitDays converts a distance estimate into ground transit
// days, clamped to the 1..8 range carriers actually publish.
func EstimateTransitDays(miles float64) int {
	days := int(math.Ceil(miles / 500))
	if days < 1 {
		days = 1
	}
	if days > 8 {
		days = 8
	}
	return days
}
