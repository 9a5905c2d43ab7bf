package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Document is a JSON column value.
type Document []byte

// Value implements driver.Valuer.
func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	return []byte(d), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		*d = append((*d)[:0], v...)
	case string:
		*d = Document(v)
	case nil:
		*d = nil
	default:
		return errors.New("store: unsupported document type")
	}
	return nil
}

type row struct {
	Data Document `db:"data"`
	ID   int      `db:"id"`
}

func encode[E Entity[E]](e E) (Document, error) {
	return json.Marshal(e)
}

func decode[E Entity[E]](id int, raw []byte) (E, error) {
	var e E
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, err
	}
	return e.WithID(id), nil
}
