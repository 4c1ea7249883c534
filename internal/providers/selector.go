package providers

import (
	"context"

	"englishqa/internal/models"
)

// KeyLister supplies active provider keys in priority order
type KeyLister interface {
	ListActive(ctx context.Context) ([]models.APIKey, error)
}

// Selector picks the provider key for the next request. Selection is
// deterministic: the active key with the lowest priority value wins. Key
// balance is quota bookkeeping maintained by the usage worker and does not
// gate selection.
type Selector struct {
	keys KeyLister
}

// NewSelector creates a new selector
func NewSelector(keys KeyLister) *Selector {
	return &Selector{keys: keys}
}

// Select returns the preferred provider key. Returns ErrNoProviderAvailable
// only when no key is active.
func (s *Selector) Select(ctx context.Context) (*models.APIKey, error) {
	keys, err := s.keys.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return nil, ErrNoProviderAvailable
	}

	best := &keys[0]
	for i := range keys[1:] {
		if keys[i+1].Priority < best.Priority {
			best = &keys[i+1]
		}
	}

	return best, nil
}
