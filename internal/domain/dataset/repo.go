package dataset

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists uploaded datasets. Implementations must be safe for
// concurrent use; the HTTP layer calls them from multiple requests.
type Repository interface {
	Save(ctx context.Context, d *Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dataset, error)
	Latest(ctx context.Context) (*Dataset, error)
	Clear(ctx context.Context) error
}
