package models

import (
	"reflect"
	"testing"
)

func TestMergeCoalescesAbsentFields(t *testing.T) {
	prev := &Listing{
		ID:          "taycan-abc",
		VIN:         "WP0ZZZY1ZMSA12345",
		Description: "Stunning example.",
		Price:       IntPtr(45000),
		Equipment:   Equipment{Wheels: []string{"21-inch wheels"}},
	}
	next := &Listing{
		ID:    "taycan-abc",
		Price: IntPtr(43900),
		// VIN, description and equipment were not re-extracted this scan
	}

	m := Merge(prev, next)

	if m.Price == nil || *m.Price != 43900 {
		t.Errorf("Price = %v; present new value must win", m.Price)
	}
	if m.VIN != "WP0ZZZY1ZMSA12345" {
		t.Errorf("VIN = %q; absent new value must not blank the stored one", m.VIN)
	}
	if m.Description != "Stunning example." {
		t.Errorf("Description = %q; want preserved", m.Description)
	}
	if !reflect.DeepEqual(m.Equipment.Wheels, []string{"21-inch wheels"}) {
		t.Errorf("Wheels = %v; want preserved", m.Equipment.Wheels)
	}
}

func TestMergeNewValuesWin(t *testing.T) {
	prev := &Listing{
		ID:             "taycan-abc",
		PriceText:      "£45,000",
		PreviousOwners: IntPtr(1),
		Equipment:      Equipment{Interior: []string{"Cloth seats"}},
	}
	next := &Listing{
		ID:             "taycan-abc",
		PriceText:      "£43,900",
		PreviousOwners: IntPtr(2),
		Equipment:      Equipment{Interior: []string{"Leather seats", "Heated seats"}},
	}

	m := Merge(prev, next)

	if m.PriceText != "£43,900" {
		t.Errorf("PriceText = %q; want new value", m.PriceText)
	}
	if *m.PreviousOwners != 2 {
		t.Errorf("PreviousOwners = %d; want 2", *m.PreviousOwners)
	}
	if len(m.Equipment.Interior) != 2 {
		t.Errorf("Interior = %v; want the new list", m.Equipment.Interior)
	}
}

func TestMergeNilPrevIsIdentity(t *testing.T) {
	next := &Listing{ID: "taycan-abc", PriceText: "£43,900"}
	if m := Merge(nil, next); m != next {
		t.Errorf("Merge(nil, next) should return next unchanged")
	}
}
