package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONB stores arbitrary JSON in a jsonb column (input context, raw exchange
// blobs, key driver lists expressed as loose shapes the LLM returned).
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("JSONB.Scan: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// StringList stores a string slice in a jsonb/text column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("StringList.Scan: unsupported type")
	}
}
