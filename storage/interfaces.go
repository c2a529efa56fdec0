package storage

import (
	"time"

	"taycan-tracker/models"
)

// Store is the persistence boundary the scan pipeline and the dashboard API
// talk to. One scan's writes (upserts, removal flips, price history, journal
// row) apply as a single transaction.
type Store interface {
	// PriorStates returns the pre-scan (price, removed) state of every stored
	// listing, keyed by id.
	PriorStates() (map[string]models.PriorState, error)

	// ApplyScan persists one classified scan atomically: a failure leaves no
	// partial reconciliation visible.
	ApplyScan(result *models.ScanResult) error

	// RecordScanFailure journals a scan that died before reconciliation, so
	// monitoring can tell a failed scan from a quiet one.
	RecordScanFailure(scrapedAt time.Time, found int) error

	ActiveListings() ([]*models.Listing, error)
	RemovedListings(limit int) ([]*models.Listing, error)
	PriceHistory(listingID string) ([]*models.PriceHistoryEntry, error)
	AllPriceHistory() ([]*models.PriceHistoryEntry, error)
	ScanLog(limit int) ([]*models.ScanLogEntry, error)
	Stats(targetYear int) (*models.Stats, error)

	Close() error
}
