package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// PassthroughLabelStore keeps the carrier's own label URL instead of
// archiving. Used when object storage is disabled.
type PassthroughLabelStore struct{}

// NewPassthroughLabelStore creates a store that archives nothing.
func NewPassthroughLabelStore() *PassthroughLabelStore {
	return &PassthroughLabelStore{}
}

func (s *PassthroughLabelStore) Store(_ context.Context, _ uuid.UUID, labelURL string) (string, error) {
	if labelURL == "" {
		return "", errors.New("label URL is required")
	}
	return labelURL, nil
}

var _ shipping.LabelStore = (*PassthroughLabelStore)(nil)
