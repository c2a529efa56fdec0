package services

import (
	"reflect"
	"testing"
	"time"

	"taycan-tracker/models"
)

func listingWithPrice(id string, price int) *models.Listing {
	return &models.Listing{ID: id, Price: models.IntPtr(price)}
}

func TestReconcileClassification(t *testing.T) {
	r := NewReconciler(newTestLogger())
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	prior := map[string]models.PriorState{
		"same":    {Price: models.IntPtr(42995)},
		"cheaper": {Price: models.IntPtr(45000)},
		"gone":    {Price: models.IntPtr(50000)},
		"buried":  {Price: models.IntPtr(48000), Removed: true},
	}
	observed := []*models.Listing{
		listingWithPrice("same", 42995),
		listingWithPrice("cheaper", 43900),
		listingWithPrice("fresh", 59000),
	}

	result := r.Reconcile(observed, prior, now)

	if result.ListingsFound != 3 {
		t.Errorf("ListingsFound = %d; want 3", result.ListingsFound)
	}
	if result.NewCount() != 1 || result.NewListings[0].ID != "fresh" {
		t.Errorf("new = %v; want [fresh]", result.NewListings)
	}
	if !reflect.DeepEqual(result.ChangedIDs, []string{"cheaper"}) {
		t.Errorf("ChangedIDs = %v; want [cheaper]", result.ChangedIDs)
	}
	if !reflect.DeepEqual(result.UnchangedIDs, []string{"same"}) {
		t.Errorf("UnchangedIDs = %v; want [same]", result.UnchangedIDs)
	}
	// "gone" vanished and gets flagged; "buried" was already removed and is
	// not reclassified.
	if !reflect.DeepEqual(result.RemovedIDs, []string{"gone"}) {
		t.Errorf("RemovedIDs = %v; want [gone]", result.RemovedIDs)
	}
	if !result.ScrapedAt.Equal(now) {
		t.Errorf("ScrapedAt = %v; want %v", result.ScrapedAt, now)
	}
}

func TestReconcilePriceAbsenceIsAChange(t *testing.T) {
	r := NewReconciler(newTestLogger())
	now := time.Now().UTC()

	tests := []struct {
		name     string
		prior    *int
		observed *int
		want     string // classification bucket
	}{
		{"both present equal", models.IntPtr(42995), models.IntPtr(42995), "unchanged"},
		{"both present different", models.IntPtr(42995), models.IntPtr(41000), "changed"},
		{"prior absent", nil, models.IntPtr(42995), "changed"},
		{"observed absent", models.IntPtr(42995), nil, "changed"},
		{"both absent", nil, nil, "unchanged"},
	}

	for _, tt := range tests {
		prior := map[string]models.PriorState{"car": {Price: tt.prior}}
		result := r.Reconcile([]*models.Listing{{ID: "car", Price: tt.observed}}, prior, now)

		got := "unchanged"
		if len(result.ChangedIDs) > 0 {
			got = "changed"
		}
		if got != tt.want {
			t.Errorf("%s: classified %s; want %s", tt.name, got, tt.want)
		}
	}
}

func TestReconcileReObservedRemovedListing(t *testing.T) {
	r := NewReconciler(newTestLogger())
	now := time.Now().UTC()

	prior := map[string]models.PriorState{
		"back": {Price: models.IntPtr(42995), Removed: true},
	}
	result := r.Reconcile([]*models.Listing{listingWithPrice("back", 42995)}, prior, now)

	// Same row, same price: unchanged, and certainly not removed again.
	if !reflect.DeepEqual(result.UnchangedIDs, []string{"back"}) {
		t.Errorf("UnchangedIDs = %v; want [back]", result.UnchangedIDs)
	}
	if result.RemovedCount() != 0 {
		t.Errorf("RemovedIDs = %v; want none", result.RemovedIDs)
	}
}

func TestReconcileDuplicateIDLaterWins(t *testing.T) {
	r := NewReconciler(newTestLogger())
	now := time.Now().UTC()

	prior := map[string]models.PriorState{"dup": {Price: models.IntPtr(42995)}}
	observed := []*models.Listing{
		listingWithPrice("dup", 42995),
		listingWithPrice("dup", 41000),
	}

	result := r.Reconcile(observed, prior, now)

	if result.ListingsFound != 1 {
		t.Errorf("ListingsFound = %d; want 1 after dedup", result.ListingsFound)
	}
	if *result.Observed[0].Price != 41000 {
		t.Errorf("observed price = %d; later occurrence must win", *result.Observed[0].Price)
	}
	// price comparison runs against the pre-scan stored price per id, once
	if result.ChangedCount()+result.UnchangedCount() != 1 {
		t.Errorf("classified %d times; want exactly once", result.ChangedCount()+result.UnchangedCount())
	}
}

func TestReconcileFreshStore(t *testing.T) {
	r := NewReconciler(newTestLogger())
	now := time.Now().UTC()

	result := r.Reconcile([]*models.Listing{listingWithPrice("only", 42995)},
		map[string]models.PriorState{}, now)

	if result.NewCount() != 1 || result.RemovedCount() != 0 {
		t.Errorf("new=%d removed=%d; want 1 and 0", result.NewCount(), result.RemovedCount())
	}
}
