package patient

import (
	"context"
)

// Repository defines the persistence interface for patients.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error)
}
