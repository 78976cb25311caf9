package shipping

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// RateCache stores raw carrier quotes keyed by lane and group contents.
// Merchant pricing rules are applied after every cache read, so rule
// changes take effect without waiting out the TTL. Implementations
// decide eviction; callers pass the TTL.
type RateCache interface {
	Get(ctx context.Context, key string) ([]shipping.RateOption, bool)
	Set(ctx context.Context, key string, opts []shipping.RateOption, ttl time.Duration)
}

// rateCacheKey derives a stable cache key for one group's quote. Items
// are sorted by SKU so cart order does not fragment the cache.
func rateCacheKey(origin, dest valueobject.Address, group shipping.ShipmentGroup) string {
	parts := make([]string, 0, len(group.Items))
	for _, li := range group.Items {
		parts = append(parts, fmt.Sprintf("%s:%d:%t", li.Product.SKU, li.Quantity, li.WhiteGloveSelected))
	}
	sort.Strings(parts)
	return fmt.Sprintf("rates:%s:%s:%s:%s:%s", origin.ZipPrefix(5), dest.Country, dest.ZipPrefix(5), group.Type, strings.Join(parts, ","))
}
