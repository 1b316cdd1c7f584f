package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// jsonbValue marshals a slice-backed column into its JSONB representation.
func jsonbValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling jsonb column: %w", err)
	}
	return string(data), nil
}

// jsonbScan unmarshals a JSONB column into dst. NULL columns leave dst empty.
func jsonbScan(src any, dst any) error {
	if src == nil {
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return errors.New("unsupported source type for jsonb column")
	}
}

// StringList is a JSONB-backed ordered list of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return jsonbValue([]string(l))
}

func (l *StringList) Scan(src any) error {
	return jsonbScan(src, (*[]string)(l))
}

// UintList is a JSONB-backed ordered list of numeric identifiers.
type UintList []uint

func (l UintList) Value() (driver.Value, error) {
	return jsonbValue([]uint(l))
}

func (l *UintList) Scan(src any) error {
	return jsonbScan(src, (*[]uint)(l))
}

// Contains reports whether id is a member of the list.
func (l UintList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
