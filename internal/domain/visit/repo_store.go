package visit

import (
	"context"
	"fmt"

	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/pkg/pagination"
)

// Collection is the gateway collection holding visits.
const Collection = "visits"

type storeRepo struct {
	store docstore.Store
}

func NewStoreRepo(store docstore.Store) Repository {
	return &storeRepo{store: store}
}

func (r *storeRepo) Create(ctx context.Context, v *Visit) error {
	doc, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	created, err := r.store.Create(ctx, Collection, doc)
	if err != nil {
		return fmt.Errorf("create visit: %w", err)
	}
	return docstore.Decode(created, v)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*Visit, error) {
	doc, err := r.store.FindByID(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	var v Visit
	if err := docstore.Decode(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *storeRepo) Update(ctx context.Context, v *Visit) error {
	doc, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	updated, err := r.store.UpdateByID(ctx, Collection, v.ID, doc)
	if err != nil {
		return fmt.Errorf("update visit: %w", err)
	}
	return docstore.Decode(updated, v)
}

func (r *storeRepo) Delete(ctx context.Context, id string) error {
	ok, err := r.store.DeleteByID(ctx, Collection, id)
	if err != nil {
		return fmt.Errorf("delete visit: %w", err)
	}
	if !ok {
		return fmt.Errorf("delete visit %s: %w", id, docstore.ErrNotFound)
	}
	return nil
}

// List returns visits newest first.
func (r *storeRepo) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Visit, int, error) {
	filter := docstore.Filter{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.PatientID != "" {
		filter["patientId"] = f.PatientID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	docs, err := r.store.FindMany(ctx, Collection, filter,
		docstore.Sort{Field: "date", Desc: true},
		docstore.Sort{Field: "createdAt", Desc: true},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}
	total := len(docs)
	docs = pagination.Slice(docs, limit, offset)

	out := make([]*Visit, 0, len(docs))
	for _, doc := range docs {
		var v Visit
		if err := docstore.Decode(doc, &v); err != nil {
			return nil, 0, err
		}
		out = append(out, &v)
	}
	return out, total, nil
}
