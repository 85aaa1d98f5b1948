package dbtypes

import (
	"database/sql/driver"
	"fmt"
)

// JSON holds a raw JSON document. It is written as text so the same value
// binds to jsonb on Postgres and text on sqlite.
type JSON []byte

func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case string:
		*j = JSON(v)
	case []byte:
		*j = append(JSON(nil), v...)
	default:
		return fmt.Errorf("JSON: unsupported Scan type %T", src)
	}
	return nil
}

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// GormDataType is used by AutoMigrate (sqlite); Postgres schema comes from migrations.
func (JSON) GormDataType() string {
	return "text"
}
