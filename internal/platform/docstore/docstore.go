// Package docstore is the persistence gateway: a small schemaless document
// API over named collections. Every backend (memory, PostgreSQL, SQLite)
// shares the same id generation, timestamping and id normalization so that
// callers never see storage-native identifiers.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write violates a unique key.
	ErrConflict = errors.New("document conflicts with an existing document")
)

// Document is a JSON object as stored by the gateway.
type Document map[string]interface{}

// ID returns the document's id or "" when it has none.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Filter selects documents whose top-level fields equal the given values.
type Filter map[string]interface{}

// Sort orders FindMany results by a top-level field.
type Sort struct {
	Field string
	Desc  bool
}

// UniqueKey declares that Field must be unique within Collection.
type UniqueKey struct {
	Collection string
	Field      string
}

// Store is implemented by every backend.
type Store interface {
	Create(ctx context.Context, collection string, doc Document) (Document, error)
	FindByID(ctx context.Context, collection, id string) (Document, error)
	FindMany(ctx context.Context, collection string, filter Filter, sorts ...Sort) ([]Document, error)
	UpdateByID(ctx context.Context, collection, id string, patch Document) (Document, error)
	DeleteByID(ctx context.Context, collection, id string) (bool, error)
	Close() error
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(s string) error {
	if !identRe.MatchString(s) {
		return fmt.Errorf("invalid field name %q", s)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// prepareCreate clones doc, assigns an id when missing and stamps it.
func prepareCreate(doc Document) (Document, error) {
	out, err := clone(doc)
	if err != nil {
		return nil, err
	}
	if out.ID() == "" {
		out["id"] = uuid.New().String()
	}
	ts := now()
	out["createdAt"] = ts
	out["updatedAt"] = ts
	return out, nil
}

// preparePatch clones patch, drops fields callers may not overwrite and
// stamps updatedAt.
func preparePatch(patch Document) (Document, error) {
	out, err := clone(patch)
	if err != nil {
		return nil, err
	}
	delete(out, "id")
	delete(out, "_id")
	delete(out, "createdAt")
	out["updatedAt"] = now()
	return out, nil
}

// clone deep-copies a document through its JSON form so that every value
// has the same shape it will have after a storage round trip.
func clone(doc Document) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decodeRaw(b)
}

func jsonString(doc Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func decodeRaw(b []byte) (Document, error) {
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return Normalize(out), nil
}

// Normalize rewrites storage-native "_id" keys to "id" throughout a
// document tree. An existing "id" always wins.
func Normalize(doc Document) Document {
	if doc == nil {
		return nil
	}
	return normalizeValue(map[string]interface{}(doc)).(map[string]interface{})
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		if raw, ok := out["_id"]; ok {
			if _, has := out["id"]; !has {
				out["id"] = fmt.Sprint(raw)
			}
			delete(out, "_id")
		}
		return out
	case Document:
		return Document(normalizeValue(map[string]interface{}(t)).(map[string]interface{}))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// Matches reports whether doc satisfies every equality in filter. Only
// top-level fields are compared, by value; arrays must match as a whole.
func Matches(doc Document, filter Filter) bool {
	if len(filter) == 0 {
		return true
	}
	f, err := clone(Document(filter))
	if err != nil {
		return false
	}
	for k, want := range f {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Encode converts a typed value into a Document via its JSON form.
func Encode(v interface{}) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return decodeRaw(b)
}

// Decode fills v from a Document via its JSON form.
func Decode(doc Document, v interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode into %T: %w", v, err)
	}
	return nil
}
