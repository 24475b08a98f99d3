package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue отдаёт строку: []byte lib/pq передал бы как bytea.
func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("models: unsupported json scan type %T", src)
	}
}
