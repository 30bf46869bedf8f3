package visit

import (
	"context"
)

// Repository defines the persistence interface for visits.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id string) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Visit, int, error)
}
