// Package enrich builds enrichment task input metadata and manages the
// enrichment task queue for llm_computed list fields.
package enrich

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{fieldName}} placeholders. Unbalanced braces do
// not match and are left verbatim.
var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// FieldValue is a resolved context field value used for template
// substitution. A nil Value means the field has no value for the file.
type FieldValue struct {
	FieldName string
	Value     *string
}

// SubstituteTemplate replaces every {{fieldName}} placeholder in template
// with the looked-up field value. Field names are matched case-insensitively
// with surrounding whitespace trimmed.
//
// The contract is all-or-nothing: if any referenced field is missing from
// fields or has a nil value, ok is false and the template must not be used.
// Partial substitution never happens. Templates without placeholders pass
// through unchanged. A whitespace-only placeholder trims to an empty field
// name, which never resolves, so it fails the whole template too.
func SubstituteTemplate(template string, fields []FieldValue) (string, bool) {
	fieldMap := make(map[string]*string, len(fields))
	for _, f := range fields {
		fieldMap[strings.ToLower(f.FieldName)] = f.Value
	}

	result := template
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		fieldName := strings.TrimSpace(match[1])

		value, found := fieldMap[strings.ToLower(fieldName)]
		if !found || value == nil {
			return "", false
		}

		result = strings.Replace(result, match[0], *value, 1)
	}

	return result, true
}
