package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/pkg/pagination"
)

// Collection is the gateway collection holding patients.
const Collection = "patients"

// UniqueMRN declares the medical record number unique per gateway.
var UniqueMRN = docstore.UniqueKey{Collection: Collection, Field: "mrn"}

type storeRepo struct {
	store docstore.Store
}

func NewStoreRepo(store docstore.Store) Repository {
	return &storeRepo{store: store}
}

func (r *storeRepo) Create(ctx context.Context, p *Patient) error {
	doc, err := docstore.Encode(p)
	if err != nil {
		return err
	}
	created, err := r.store.Create(ctx, Collection, doc)
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return docstore.Decode(created, p)
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*Patient, error) {
	doc, err := r.store.FindByID(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	var p Patient
	if err := docstore.Decode(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *storeRepo) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	docs, err := r.store.FindMany(ctx, Collection, docstore.Filter{"mrn": mrn})
	if err != nil {
		return nil, fmt.Errorf("get patient by mrn: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("get patient by mrn %s: %w", mrn, docstore.ErrNotFound)
	}
	var p Patient
	if err := docstore.Decode(docs[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *storeRepo) Update(ctx context.Context, p *Patient) error {
	doc, err := docstore.Encode(p)
	if err != nil {
		return err
	}
	updated, err := r.store.UpdateByID(ctx, Collection, p.ID, doc)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return docstore.Decode(updated, p)
}

// Search filters exact fields in the gateway and matches the free text
// query against name, MRN, email and phone here.
func (r *storeRepo) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	filter := docstore.Filter{}
	if params.UserID != "" {
		filter["userId"] = params.UserID
	}
	if params.MRN != "" {
		filter["mrn"] = params.MRN
	}
	if !params.IncludeInactive {
		filter["isActive"] = true
	}
	docs, err := r.store.FindMany(ctx, Collection, filter, docstore.Sort{Field: "name"})
	if err != nil {
		return nil, 0, fmt.Errorf("search patients: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(params.Query))
	matched := make([]*Patient, 0, len(docs))
	for _, doc := range docs {
		var p Patient
		if err := docstore.Decode(doc, &p); err != nil {
			return nil, 0, err
		}
		if q != "" && !p.matches(q) {
			continue
		}
		matched = append(matched, &p)
	}
	return pagination.Slice(matched, limit, offset), len(matched), nil
}

func (p *Patient) matches(q string) bool {
	for _, field := range []string{p.Name, p.MRN, p.Email, p.Phone} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
