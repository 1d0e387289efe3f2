package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Limit returns the page size clamped to a sane range.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 || p.PageSize > 100 {
		return 20
	}
	return p.PageSize
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

// FloatMap is a string-keyed numeric mapping stored as a JSONB column.
// Used for assessment weight schemes and per-component score sheets.
type FloatMap map[string]float64

// Value implements driver.Valuer.
func (m FloatMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *FloatMap) Scan(src interface{}) error {
	if src == nil {
		*m = FloatMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for FloatMap", src)
	}
	if len(data) == 0 {
		*m = FloatMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Clone returns a shallow copy so callers can snapshot the mapping.
func (m FloatMap) Clone() FloatMap {
	clone := make(FloatMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
