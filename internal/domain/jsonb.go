package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONBMap maps a PostgreSQL JSONB column to a map[string]any. It implements
// sql.Scanner and driver.Valuer so crawler option blobs can be read and
// written without per-call marshalling.
type JSONBMap map[string]any

// Scan implements the sql.Scanner interface.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for JSONBMap")
	}

	if len(data) == 0 {
		*j = JSONBMap{}
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements the driver.Valuer interface.
func (j JSONBMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(j))
}

// String returns the value stored under key if it is a string.
func (j JSONBMap) String(key string) (string, bool) {
	v, ok := j[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the value stored under key if it is numeric. JSON numbers
// decode as float64, so both forms are accepted.
func (j JSONBMap) Int(key string) (int, bool) {
	switch v := j[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
