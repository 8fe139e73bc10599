package enrich_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/golibrary/internal/enrich"
)

func strPtr(s string) *string { return &s }

func TestSubstituteTemplate(t *testing.T) {
	t.Parallel()

	fields := []enrich.FieldValue{
		{FieldName: "productName", Value: strPtr("iPhone 15")},
		{FieldName: "manufacturer", Value: strPtr("Apple")},
	}

	tests := []struct {
		name     string
		template string
		fields   []enrich.FieldValue
		want     string
		wantOK   bool
	}{
		{
			name:     "single placeholder",
			template: "Search for {{productName}}",
			fields:   fields,
			want:     "Search for iPhone 15",
			wantOK:   true,
		},
		{
			name:     "multiple placeholders",
			template: "{{manufacturer}} {{productName}} review",
			fields:   fields,
			want:     "Apple iPhone 15 review",
			wantOK:   true,
		},
		{
			name:     "case insensitive match",
			template: "Search for {{ProductName}}",
			fields:   fields,
			want:     "Search for iPhone 15",
			wantOK:   true,
		},
		{
			name:     "surrounding whitespace in placeholder",
			template: "Search for {{ productName }}",
			fields:   fields,
			want:     "Search for iPhone 15",
			wantOK:   true,
		},
		{
			name:     "missing field fails whole template",
			template: "Search for {{productName}} by {{vendor}}",
			fields:   fields,
			want:     "",
			wantOK:   false,
		},
		{
			name:     "nil value fails whole template",
			template: "Search for {{productName}}",
			fields:   []enrich.FieldValue{{FieldName: "productName", Value: nil}},
			want:     "",
			wantOK:   false,
		},
		{
			name:     "no placeholders passes through",
			template: "static query",
			fields:   nil,
			want:     "static query",
			wantOK:   true,
		},
		{
			name:     "unbalanced braces left verbatim",
			template: "Search for {{productName",
			fields:   fields,
			want:     "Search for {{productName",
			wantOK:   true,
		},
		{
			name:     "whitespace-only placeholder fails whole template",
			template: "Search for {{ }}",
			fields:   fields,
			want:     "",
			wantOK:   false,
		},
		{
			name:     "empty braces left verbatim",
			template: "Search for {{}}",
			fields:   fields,
			want:     "Search for {{}}",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := enrich.SubstituteTemplate(tt.template, tt.fields)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsMissingValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value *string
		want  bool
	}{
		{name: "nil", value: nil, want: true},
		{name: "empty", value: strPtr(""), want: true},
		{name: "whitespace", value: strPtr("   "), want: true},
		{name: "unknown", value: strPtr("Unknown"), want: true},
		{name: "n/a", value: strPtr("N/A"), want: true},
		{name: "na", value: strPtr("na"), want: true},
		{name: "none", value: strPtr("None"), want: true},
		{name: "null", value: strPtr("null"), want: true},
		{name: "real value", value: strPtr("iPhone 15"), want: false},
		{name: "zero is a value", value: strPtr("0"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, enrich.IsMissingValue(tt.value))
		})
	}
}
