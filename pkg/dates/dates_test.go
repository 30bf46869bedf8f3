package dates

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1950-03-14", "1950-03-14"},
		{"03/14/1950", "1950-03-14"},
		{"1950-03-14T10:30:00Z", "1950-03-14"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Errorf("Normalize(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-06-01T14:30:00Z", "2026-06-01T14:30:00Z"},
		{"2026-06-01T16:30:00+02:00", "2026-06-01T14:30:00Z"},
		{"2026-06-01", "2026-06-01T00:00:00Z"},
		{"06/01/2026", "2026-06-01T00:00:00Z"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := NormalizeDateTime(tt.in)
		if err != nil {
			t.Errorf("NormalizeDateTime(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDateTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := NormalizeDateTime("not a date"); err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"not a date", "13/45/2020"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
