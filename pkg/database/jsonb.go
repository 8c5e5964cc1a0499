package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB maps a Postgres jsonb column onto a typed Go value
type JSONB[T any] struct {
	Data T
}

// NewJSONB wraps v for writing
func NewJSONB[T any](v T) *JSONB[T] {
	return &JSONB[T]{Data: v}
}

// Scan implements sql.Scanner. lib/pq hands back []byte, pgx may hand back string.
func (p *JSONB[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		var zero T
		p.Data = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &p.Data)
	case string:
		return json.Unmarshal([]byte(v), &p.Data)
	default:
		return fmt.Errorf("JSONB.Scan: expected []byte or string, got %T", src)
	}
}

// Value implements driver.Valuer
func (p JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GetValue returns the wrapped value
func (p *JSONB[T]) GetValue() T {
	return p.Data
}
