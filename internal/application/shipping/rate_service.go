package shipping

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// RateService quotes shipping for carts. Quoting never fails outright:
// when the carrier is unreachable the service falls back to estimated
// rates so checkout can proceed.
type RateService struct {
	gateway       shipping.CarrierGateway
	rules         shipping.RateRules
	grouping      shipping.GroupingRules
	distance      shipping.DistanceEstimator
	cache         RateCache
	cacheTTL      time.Duration
	defaultOrigin valueobject.Address
	logger        *zap.Logger
}

// RateServiceConfig contains configuration for RateService
type RateServiceConfig struct {
	Gateway       shipping.CarrierGateway
	Rules         shipping.RateRules
	GroupingRules shipping.GroupingRules
	Distance      shipping.DistanceEstimator
	Cache         RateCache
	CacheTTL      time.Duration
	DefaultOrigin valueobject.Address
	Logger        *zap.Logger
}

// NewRateService creates a new RateService
func NewRateService(cfg RateServiceConfig) *RateService {
	distance := cfg.Distance
	if distance == nil {
		distance = shipping.ZipPrefixDistance
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RateService{
		gateway:       cfg.Gateway,
		rules:         cfg.Rules,
		grouping:      cfg.GroupingRules,
		distance:      distance,
		cache:         cfg.Cache,
		cacheTTL:      cacheTTL,
		defaultOrigin: cfg.DefaultOrigin,
		logger:        cfg.Logger,
	}
}

// CalculateRates groups the cart and quotes every group.
func (s *RateService) CalculateRates(ctx context.Context, req CalculateRatesRequest) (*CalculateRatesResponse, error) {
	origin, err := resolveOrigin(req.Origin, s.defaultOrigin)
	if err != nil {
		return nil, err
	}
	dest, err := req.Destination.ToAddress()
	if err != nil {
		return nil, err
	}
	items, err := ToLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	groups := shipping.GroupItems(items, s.grouping)
	orderValue := shipping.ItemsTotalValue(items)

	resp := &CalculateRatesResponse{
		Groups: make([]GroupQuoteResponse, 0, len(groups)),
	}
	resp.OrderValueUSD, _ = orderValue.Amount().Float64()

	totalCost := valueobject.ZeroUSD()
	for i := range groups {
		group := groups[i]
		opts := s.QuoteGroup(ctx, origin, dest, group, orderValue)
		group.RateOptions = opts
		group.SelectedRateID = req.Selections[group.ID]

		gq := GroupQuoteResponse{
			GroupID:     group.ID,
			Type:        group.Type.String(),
			ItemCount:   group.ItemCount(),
			WeightLb:    group.TotalWeightLb(),
			RateOptions: make([]RateOptionResponse, 0, len(opts)),
		}
		gq.ValueUSD, _ = group.TotalValue().Amount().Float64()
		if group.Type == shipping.GroupTypeLTL {
			gq.FreightClass = shipping.FreightClassForGroup(group)
		}
		for _, opt := range opts {
			gq.RateOptions = append(gq.RateOptions, ToRateOptionResponse(opt))
		}

		// Cart totals run over each group's selected rate, defaulting
		// to the cheapest option.
		if selected, ok := group.SelectedRate(); ok {
			gq.SelectedRateID = selected.ID
			totalCost, _ = totalCost.Add(selected.Cost)
			if resp.DeliveryRange == nil {
				resp.DeliveryRange = &DeliveryRangeResponse{
					MinDays: selected.EstimatedDays,
					MaxDays: selected.EstimatedDays,
				}
			} else {
				if selected.EstimatedDays < resp.DeliveryRange.MinDays {
					resp.DeliveryRange.MinDays = selected.EstimatedDays
				}
				if selected.EstimatedDays > resp.DeliveryRange.MaxDays {
					resp.DeliveryRange.MaxDays = selected.EstimatedDays
				}
			}
		}

		resp.Groups = append(resp.Groups, gq)
	}
	resp.TotalCostUSD, _ = totalCost.Amount().Float64()
	return resp, nil
}

// QuoteGroup returns priced rate options for one group, consulting the
// cache, falling back to estimates on carrier failure, and applying
// merchant pricing rules. The cache holds raw carrier quotes only;
// estimates are never cached and rules run on every call.
func (s *RateService) QuoteGroup(ctx context.Context, origin, dest valueobject.Address, group shipping.ShipmentGroup, orderValue valueobject.Money) []shipping.RateOption {
	key := rateCacheKey(origin, dest, group)

	raw, cached := []shipping.RateOption(nil), false
	if s.cache != nil {
		raw, cached = s.cache.Get(ctx, key)
	}
	if !cached {
		var err error
		raw, err = s.quoteCarrier(ctx, origin, dest, group)
		if err != nil {
			s.logger.Warn("Carrier quote failed, falling back to estimated rates",
				zap.String("group_id", group.ID),
				zap.Error(err))
			raw = s.estimatedRates(origin, dest, group)
		} else if s.cache != nil {
			s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
	}

	opts := s.rules.Apply(group, dest, orderValue, raw)
	if len(opts) == 0 && len(group.Items) > 0 {
		// Every live quote was filtered out for this destination. A
		// non-empty group always gets at least an estimated option.
		opts = s.rules.Apply(group, dest, orderValue, s.estimatedRates(origin, dest, group))
	}
	return opts
}

func (s *RateService) quoteCarrier(ctx context.Context, origin, dest valueobject.Address, group shipping.ShipmentGroup) ([]shipping.RateOption, error) {
	if group.Type == shipping.GroupTypeLTL {
		return s.gateway.GetFreightRates(ctx, shipping.FreightQuoteRequest{
			Origin:       origin,
			Destination:  dest,
			WeightLb:     group.TotalWeightLb(),
			FreightClass: shipping.FreightClassForGroup(group),
			WhiteGlove:   group.HasWhiteGlove(),
		})
	}
	return s.gateway.GetRates(ctx, shipping.RateQuoteRequest{
		Origin:      origin,
		Destination: dest,
		Boxes:       group.Boxes,
	})
}

// estimatedRates produces a deterministic fallback quote from weight
// and the ZIP distance heuristic when no carrier answer is available.
func (s *RateService) estimatedRates(origin, dest valueobject.Address, group shipping.ShipmentGroup) []shipping.RateOption {
	miles := s.distance(origin, dest)
	weight := group.TotalWeightLb()
	days := shipping.EstimateTransitDays(miles)

	var amount float64
	var service string
	if group.Type == shipping.GroupTypeLTL {
		amount = 120 + 0.35*weight + 0.10*miles
		service = "ltl_estimate"
	} else {
		amount = 8 + 0.55*weight + 0.02*miles
		service = "ground_estimate"
	}
	cost, err := valueobject.NewMoneyUSDFromFloat(amount)
	if err != nil {
		cost = valueobject.ZeroUSD()
	}

	return []shipping.RateOption{{
		ID:            fmt.Sprintf("est-%s", group.ID),
		Carrier:       "estimate",
		Service:       service,
		Cost:          cost.Round(2),
		EstimatedDays: days,
		Estimated:     true,
		Restrictions:  []string{"demo/estimated"},
	}}
}
