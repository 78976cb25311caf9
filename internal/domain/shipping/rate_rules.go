package shipping

import (
	"strings"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// whiteGloveEstimatedDays is the fixed delivery estimate quoted for
// white-glove service, which schedules around the assembly crew rather
// than the carrier network.
const whiteGloveEstimatedDays = 14

// RateRules are the merchant pricing policies applied on top of raw
// carrier quotes.
type RateRules struct {
	// HomeCountry is the origin country for domestic checks.
	HomeCountry string

	// InternationalCarriers lists the carriers cleared for cross-border
	// lanes. Options from other carriers are dropped on international
	// destinations.
	InternationalCarriers []string

	// InternationalWhiteGlove keeps white-glove options on international
	// lanes. Off by default since the assembly crews are domestic.
	InternationalWhiteGlove bool

	// WhiteGloveCountries is the destination set where white-glove
	// delivery is offered for assembly-required items.
	WhiteGloveCountries []string

	// WhiteGloveFeeUSD is the flat fee for the appended white-glove option.
	WhiteGloveFeeUSD float64

	// FreeShippingThresholdUSD zeroes parcel shipping once the order
	// value reaches it. Zero disables the rule.
	FreeShippingThresholdUSD float64

	// HandlingFeePercent is added to main-group parcel rates. Zero disables.
	HandlingFeePercent float64
}

// DefaultRateRules returns the standard merchant policy
func DefaultRateRules() RateRules {
	return RateRules{
		HomeCountry:              "US",
		InternationalCarriers:    []string{"shiplane", "freightco"},
		InternationalWhiteGlove:  false,
		WhiteGloveCountries:      []string{"US"},
		WhiteGloveFeeUSD:         250,
		FreeShippingThresholdUSD: 0,
		HandlingFeePercent:       0,
	}
}

// Apply runs the pricing pipeline over raw carrier options for one
// group. Stages run in a fixed order: white-glove append, international
// carrier filter, free-shipping override, handling fee. It expects raw
// carrier options; the white-glove and free-shipping stages guard
// against double application but the handling fee does not.
func (r RateRules) Apply(group ShipmentGroup, dest valueobject.Address, orderValue valueobject.Money, opts []RateOption) []RateOption {
	opts = r.appendWhiteGlove(group, dest, opts)
	opts = r.filterInternational(dest, opts)

	if group.Type != GroupTypeLTL {
		opts = r.applyFreeShipping(orderValue, opts)
	}
	if group.Type == GroupTypeMain {
		opts = r.applyHandlingFee(opts)
	}
	return SortRateOptions(opts)
}

// appendWhiteGlove adds a flat-fee white-glove option to main groups
// holding assembly-required items, when the destination country offers
// the service.
func (r RateRules) appendWhiteGlove(group ShipmentGroup, dest valueobject.Address, opts []RateOption) []RateOption {
	if group.Type != GroupTypeMain || !group.RequiresAssembly() {
		return opts
	}
	if !containsCountry(r.WhiteGloveCountries, dest.Country) {
		return opts
	}
	for _, opt := range opts {
		if opt.AssemblyIncluded {
			return opts
		}
	}

	fee, _ := valueobject.NewMoneyUSDFromFloat(r.WhiteGloveFeeUSD)
	wg := RateOption{
		ID:                "wg-" + group.ID,
		Carrier:           "white_glove",
		Service:           "white_glove",
		Cost:              fee,
		EstimatedDays:     whiteGloveEstimatedDays,
		SignatureRequired: true,
		AssemblyIncluded:  true,
		TrackingSupported: true,
	}
	out := make([]RateOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, wg)
}

// filterInternational drops options that cannot serve a cross-border
// destination: carriers off the international allow-list, and
// white-glove unless explicitly enabled. Estimated fallbacks pass
// through, since a degraded quote must survive for every group.
func (r RateRules) filterInternational(dest valueobject.Address, opts []RateOption) []RateOption {
	if dest.IsDomestic(r.HomeCountry) {
		return opts
	}
	out := make([]RateOption, 0, len(opts))
	for _, opt := range opts {
		if opt.AssemblyIncluded {
			if r.InternationalWhiteGlove {
				out = append(out, opt)
			}
			continue
		}
		if opt.Estimated || containsCarrier(r.InternationalCarriers, opt.Carrier) {
			out = append(out, opt)
		}
	}
	return out
}

// applyFreeShipping zeroes parcel costs once the order value reaches
// the merchant threshold.
func (r RateRules) applyFreeShipping(orderValue valueobject.Money, opts []RateOption) []RateOption {
	if r.FreeShippingThresholdUSD <= 0 {
		return opts
	}
	threshold, _ := valueobject.NewMoneyUSDFromFloat(r.FreeShippingThresholdUSD)
	if orderValue.Cmp(threshold) < 0 {
		return opts
	}
	out := make([]RateOption, len(opts))
	for i, opt := range opts {
		opt.Cost = valueobject.ZeroUSD()
		out[i] = opt
	}
	return out
}

// applyHandlingFee marks parcel rates up by the configured percent.
// Zero-cost rates stay free.
func (r RateRules) applyHandlingFee(opts []RateOption) []RateOption {
	if r.HandlingFeePercent <= 0 {
		return opts
	}
	factor := decimal.NewFromFloat(1 + r.HandlingFeePercent/100)
	out := make([]RateOption, len(opts))
	for i, opt := range opts {
		if !opt.Cost.IsZero() {
			opt.Cost = opt.Cost.Mul(factor).Round(2)
		}
		out[i] = opt
	}
	return out
}

func containsCountry(set []string, country string) bool {
	for _, c := range set {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}

func containsCarrier(set []string, carrier string) bool {
	for _, c := range set {
		if strings.EqualFold(c, carrier) {
			return true
		}
	}
	return false
}
