package archive

import (
	"context"
	"errors"
)

// Multi saves every run to all of its stores. Listing reads from the first store.
type Multi struct {
	stores []Store
}

// NewMulti combines stores. Nil stores are skipped.
func NewMulti(stores ...Store) *Multi {
	m := &Multi{}
	for _, s := range stores {
		if s != nil {
			m.stores = append(m.stores, s)
		}
	}
	return m
}

// Add appends a store. Nil is ignored.
func (m *Multi) Add(s Store) {
	if s != nil {
		m.stores = append(m.stores, s)
	}
}

// Len returns the number of stores
func (m *Multi) Len() int {
	return len(m.stores)
}

// SaveForecast writes run to every store and joins their errors
func (m *Multi) SaveForecast(ctx context.Context, run *Run) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.SaveForecast(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListRuns reads from the first store
func (m *Multi) ListRuns(ctx context.Context, site string, limit int) ([]Run, error) {
	if len(m.stores) == 0 {
		return nil, nil
	}
	return m.stores[0].ListRuns(ctx, site, limit)
}

// Close closes every store
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
