package template

import (
	"context"
)

// Repository defines the persistence interface for templates.
type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, userID string, limit, offset int) ([]*Template, int, error)
}
