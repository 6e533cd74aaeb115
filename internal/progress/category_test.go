package progress

import (
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	testCases := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{"trauma", CategoryTrauma, false},
		{"upper", CategoryUpper, false},
		{"lower", CategoryLower, false},
		{"Upper", "", true},
		{"", "", true},
		{"invalid", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseCategory(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("ParseCategory(%q) error = %v; want ErrInvalidArgument", tc.input, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseCategory(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
			}
		})
	}
}

func TestDocumentAddAndValue(t *testing.T) {
	var doc Document
	for i, c := range Categories() {
		doc.Add(c, float64(i+1))
	}
	if doc.Value(CategoryTrauma) != 1 || doc.Value(CategoryUpper) != 2 || doc.Value(CategoryLower) != 3 {
		t.Fatalf("unexpected counters: %+v", doc)
	}

	at := time.Unix(10, 0)
	doc.Zero(at)
	if doc.Trauma != 0 || doc.Upper != 0 || doc.Lower != 0 || doc.UpdatedAt == nil || !doc.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected zeroed document: %+v", doc)
	}
}

func TestChangeEventValidate(t *testing.T) {
	now := time.Now()
	valid := []ChangeEvent{
		{Kind: ChangeIncrement, Category: CategoryUpper, Delta: 1, TS: now},
		{Kind: ChangeReset, TS: now},
	}
	for _, evt := range valid {
		if err := evt.Validate(); err != nil {
			t.Fatalf("Validate(%+v) error = %v", evt, err)
		}
	}

	invalid := []ChangeEvent{
		{Kind: ChangeIncrement, Category: CategoryUpper},
		{Kind: ChangeIncrement, Category: "sideways", TS: now},
		{Kind: ChangeReset, Category: CategoryLower, TS: now},
		{Kind: "progress.deleted", TS: now},
	}
	for _, evt := range invalid {
		if err := evt.Validate(); err == nil {
			t.Fatalf("expected Validate(%+v) to fail", evt)
		}
	}
}
