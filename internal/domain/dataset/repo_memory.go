package dataset

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memoryRepo is the default store: per-server, lost on restart. That is the
// intended scope; uploads are working data, not a system of record.
type memoryRepo struct {
	mu       sync.RWMutex
	datasets map[uuid.UUID]*Dataset
	latest   uuid.UUID
}

func NewMemoryRepo() Repository {
	return &memoryRepo{datasets: make(map[uuid.UUID]*Dataset)}
}

func (r *memoryRepo) Save(_ context.Context, d *Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[d.ID] = d
	r.latest = d.ID
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.datasets[id]
	if !ok {
		return nil, ErrNoDataset
	}
	return d, nil
}

func (r *memoryRepo) Latest(_ context.Context) (*Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.datasets[r.latest]
	if !ok {
		return nil, ErrNoDataset
	}
	return d, nil
}

func (r *memoryRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets = make(map[uuid.UUID]*Dataset)
	r.latest = uuid.Nil
	return nil
}
