package storage

import (
	"database/sql"
	"encoding/json"
)

// EncodeOptions serializes one equipment category for storage. An empty or
// nil list encodes as SQL NULL, identically to "no data", so a later scan
// that found nothing never overwrites a populated column.
func EncodeOptions(items []string) sql.NullString {
	if len(items) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

// DecodeOptions deserializes a stored equipment column. NULL, empty and
// malformed blobs all decode to an empty list, never an error.
func DecodeOptions(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		return nil
	}
	return items
}
