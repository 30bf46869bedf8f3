package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Gender string `json:"gender" validate:"required,oneof=Male Female Other 'Prefer not to say'"`
	Age    int    `json:"age" validate:"min=0,max=150"`
}

func TestStruct_Valid(t *testing.T) {
	s := sample{Name: "Ada", Gender: "Prefer not to say", Age: 80}
	if err := Struct(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_FieldErrors(t *testing.T) {
	err := Struct(sample{Email: "nope", Gender: "Unknown", Age: 200})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	for _, field := range []string{"name", "email", "gender", "age"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected error for %s, got %v", field, verr.Fields)
		}
	}
	if verr.Fields["name"] != "is required" {
		t.Errorf("expected 'is required', got %q", verr.Fields["name"])
	}
	if !strings.HasPrefix(verr.Error(), "validation failed: age:") {
		t.Errorf("expected sorted message, got %q", verr.Error())
	}
}
