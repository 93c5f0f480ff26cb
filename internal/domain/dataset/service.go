package dataset

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

// DefaultUploadLimit caps how many rows an upload ingests. Large files are
// truncated, not rejected; the dashboard works on a sample.
const DefaultUploadLimit = 100

type Service struct {
	repo  Repository
	limit int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, limit: DefaultUploadLimit}
}

// NewServiceWithLimit overrides the row cap, mainly for tests.
func NewServiceWithLimit(repo Repository, limit int) *Service {
	return &Service{repo: repo, limit: limit}
}

// Upload parses a CSV stream, validates it, and stores the result as the
// newest dataset. Malformed input fails the whole upload; partial datasets
// are never saved.
func (s *Service) Upload(ctx context.Context, r io.Reader) (*Dataset, error) {
	records, err := record.ReadCSV(r, s.limit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &record.ValidationError{Field: "file", Reason: "no data rows"}
	}
	d := &Dataset{
		ID:         uuid.New(),
		UploadedAt: time.Now().UTC(),
		Records:    records,
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	return d, nil
}

// Latest returns the newest uploaded dataset, or ErrNoDataset.
func (s *Service) Latest(ctx context.Context) (*Dataset, error) {
	return s.repo.Latest(ctx)
}

// Get returns a dataset by ID, or ErrNoDataset.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	return s.repo.GetByID(ctx, id)
}

// Clear drops all uploaded data.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear datasets: %w", err)
	}
	return nil
}
