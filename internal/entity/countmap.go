package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// CountMap is a typed accumulator keyed by category string (event type, role,
// content kind). Stored as JSONB so breakdowns stay extensible without schema
// churn or reflection.
type CountMap map[string]int64

func (m CountMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *CountMap) Scan(value interface{}) error {
	if value == nil {
		*m = CountMap{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("countmap: unsupported scan type")
	}

	return json.Unmarshal(data, m)
}

// Add increments a category, allocating the map on first use.
func (m *CountMap) Add(key string, delta int64) {
	if *m == nil {
		*m = CountMap{}
	}
	(*m)[key] += delta
}

// Merge folds other into m. Addition is commutative, so merge order between
// concurrent batches does not matter.
func (m *CountMap) Merge(other CountMap) {
	for k, v := range other {
		m.Add(k, v)
	}
}
