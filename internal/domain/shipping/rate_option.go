package shipping

import (
	"sort"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
)

// RateOption is one quotable shipping service for a group.
type RateOption struct {
	ID      string `json:"id"`
	Carrier string `json:"carrier"`
	Service string `json:"service"`

	Cost          valueobject.Money `json:"cost"`
	EstimatedDays int               `json:"estimated_days"`

	SignatureRequired bool `json:"signature_required"`
	InsuranceIncluded bool `json:"insurance_included"`
	AssemblyIncluded  bool `json:"assembly_included"`
	TrackingSupported bool `json:"tracking_supported"`

	// Estimated marks a fallback quote produced without a live carrier
	// response. Estimated rates are bookable but flagged to the buyer.
	Estimated bool `json:"estimated,omitempty"`

	// Restrictions are caveat notes attached to the option, shown to
	// the buyer as-is ("demo/estimated" on fallback quotes).
	Restrictions []string `json:"restrictions,omitempty"`
}

// SortRateOptions orders options by cost, then speed. The sort is
// stable so equally priced options keep carrier order.
func SortRateOptions(opts []RateOption) []RateOption {
	sorted := make([]RateOption, len(opts))
	copy(sorted, opts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Cost.Cmp(sorted[j].Cost); c != 0 {
			return c < 0
		}
		return sorted[i].EstimatedDays < sorted[j].EstimatedDays
	})
	return sorted
}
