package template

import (
	"context"
	"fmt"

	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/pkg/pagination"
)

// Collection is the gateway collection holding templates.
const Collection = "templates"

type storeRepo struct {
	store docstore.Store
}

// NewStoreRepo returns a Repository backed by the persistence gateway.
func NewStoreRepo(store docstore.Store) Repository {
	return &storeRepo{store: store}
}

func (r *storeRepo) Create(ctx context.Context, t *Template) error {
	doc, err := docstore.Encode(t)
	if err != nil {
		return err
	}
	if t.ID == "" {
		delete(doc, "id")
	}
	created, err := r.store.Create(ctx, Collection, doc)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return docstore.Decode(created, t)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*Template, error) {
	doc, err := r.store.FindByID(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	var t Template
	if err := docstore.Decode(doc, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *storeRepo) Update(ctx context.Context, t *Template) error {
	doc, err := docstore.Encode(t)
	if err != nil {
		return err
	}
	updated, err := r.store.UpdateByID(ctx, Collection, t.ID, doc)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return docstore.Decode(updated, t)
}

func (r *storeRepo) Delete(ctx context.Context, id string) error {
	ok, err := r.store.DeleteByID(ctx, Collection, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if !ok {
		return fmt.Errorf("delete template %s: %w", id, docstore.ErrNotFound)
	}
	return nil
}

func (r *storeRepo) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]*Template, int, error) {
	filter := docstore.Filter{}
	if userID != "" {
		filter["userId"] = userID
	}
	docs, err := r.store.FindMany(ctx, Collection, filter, docstore.Sort{Field: "updatedAt", Desc: true})
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	total := len(docs)
	docs = pagination.Slice(docs, limit, offset)

	out := make([]*Template, 0, len(docs))
	for _, doc := range docs {
		var t Template
		if err := docstore.Decode(doc, &t); err != nil {
			return nil, 0, err
		}
		out = append(out, &t)
	}
	return out, total, nil
}
