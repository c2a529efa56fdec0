package services

import (
	"testing"
	"time"

	"taycan-tracker/models"
)

func TestToExportListingFreshness(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		firstSeen      time.Time
		lastSeen       time.Time
		removed        bool
		wantIsNew      bool
		wantDaysListed int
	}{
		{
			name:           "first seen today",
			firstSeen:      time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC),
			lastSeen:       now,
			wantIsNew:      true,
			wantDaysListed: 0,
		},
		{
			name:           "listed for a week",
			firstSeen:      time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
			lastSeen:       now,
			wantIsNew:      false,
			wantDaysListed: 7,
		},
	}

	for _, tt := range tests {
		l := &models.Listing{ID: "x", FirstSeen: tt.firstSeen, LastSeen: tt.lastSeen, Removed: tt.removed}
		out := ToExportListing(l, now)
		if out.IsNew != tt.wantIsNew {
			t.Errorf("%s: IsNew = %v; want %v", tt.name, out.IsNew, tt.wantIsNew)
		}
		if out.DaysListed != tt.wantDaysListed {
			t.Errorf("%s: DaysListed = %d; want %d", tt.name, out.DaysListed, tt.wantDaysListed)
		}
		if out.DaysSinceSeen != nil {
			t.Errorf("%s: DaysSinceSeen set for an active listing", tt.name)
		}
	}
}

func TestToExportListingRemoved(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	l := &models.Listing{
		ID:        "gone",
		FirstSeen: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		LastSeen:  time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Removed:   true,
	}

	out := ToExportListing(l, now)
	if out.DaysSinceSeen == nil || *out.DaysSinceSeen != 3 {
		t.Errorf("DaysSinceSeen = %v; want 3", out.DaysSinceSeen)
	}
	if out.DaysWasListed == nil || *out.DaysWasListed != 28 {
		t.Errorf("DaysWasListed = %v; want 28", out.DaysWasListed)
	}
}

func TestToExportListingEquipmentNeverNull(t *testing.T) {
	out := ToExportListing(&models.Listing{ID: "x"}, time.Now().UTC())
	for name, list := range map[string][]string{
		"highlights": out.Equipment.Highlights,
		"exterior":   out.Equipment.Exterior,
		"assistance": out.Equipment.Assistance,
	} {
		if list == nil {
			t.Errorf("%s serializes as null; want []", name)
		}
	}
}
