package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attributes holds the free-form, type-specific properties of an item
// (seats, berths, engine hours, ...). Stored as a JSON text column.
type Attributes map[string]any

func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return jsonValue(a)
}

func (a *Attributes) Scan(src any) error {
	*a = Attributes{}
	return scanJSON(src, a)
}

// StringList is a JSON encoded list of strings, used for photo references.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

func (l *StringList) Scan(src any) error {
	*l = StringList{}
	return scanJSON(src, l)
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("model: cannot scan %T into %T", src, dst)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
