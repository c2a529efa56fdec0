package storage

import (
	"database/sql"
	"reflect"
	"testing"
)

func TestOptionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		items []string
	}{
		{"typical list", []string{"Panoramic roof", "Privacy glazing"}},
		{"single item", []string{"Sport Chrono Package"}},
		{"item with quotes", []string{`21" Mission E Design Wheels`}},
	}

	for _, tt := range tests {
		encoded := EncodeOptions(tt.items)
		if !encoded.Valid {
			t.Errorf("%s: encoded as NULL", tt.name)
			continue
		}
		decoded := DecodeOptions(encoded)
		if !reflect.DeepEqual(decoded, tt.items) {
			t.Errorf("%s: round trip = %v; want %v", tt.name, decoded, tt.items)
		}
	}
}

func TestEncodeEmptyIsNull(t *testing.T) {
	if EncodeOptions(nil).Valid {
		t.Error("EncodeOptions(nil) should be NULL")
	}
	if EncodeOptions([]string{}).Valid {
		t.Error("EncodeOptions(empty) should be NULL")
	}
}

func TestDecodeMalformedYieldsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  sql.NullString
	}{
		{"null column", sql.NullString{}},
		{"empty string", sql.NullString{String: "", Valid: true}},
		{"not json", sql.NullString{String: "{broken", Valid: true}},
		{"wrong shape", sql.NullString{String: `{"a":1}`, Valid: true}},
		{"number array", sql.NullString{String: `[1,2,3]`, Valid: true}},
	}

	for _, tt := range tests {
		if got := DecodeOptions(tt.raw); len(got) != 0 {
			t.Errorf("%s: DecodeOptions = %v; want empty", tt.name, got)
		}
	}
}
