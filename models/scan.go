package models

import "time"

// Scan journal statuses.
const (
	ScanStatusSuccess = "success"
	ScanStatusFailed  = "failed"
)

// PriorState is the pre-scan view of one stored listing, as little as the
// reconciler needs: the last stored price and whether the row is flagged
// removed.
type PriorState struct {
	Price   *int
	Removed bool
}

// ScanResult is the classification of one complete scan cycle. It is built as
// a value by the reconciler and threaded through persistence, export and
// notification, never accumulated in package state.
type ScanResult struct {
	ScrapedAt     time.Time
	ListingsFound int

	// Observed listings in final (deduplicated, later-wins) order.
	Observed []*Listing

	NewListings  []*Listing
	ChangedIDs   []string
	UnchangedIDs []string
	RemovedIDs   []string
}

// NewCount and friends exist so journal rows and log lines read the same way.
func (r *ScanResult) NewCount() int       { return len(r.NewListings) }
func (r *ScanResult) ChangedCount() int   { return len(r.ChangedIDs) }
func (r *ScanResult) UnchangedCount() int { return len(r.UnchangedIDs) }
func (r *ScanResult) RemovedCount() int   { return len(r.RemovedIDs) }

// PriceHistoryEntry is one immutable price observation. One entry is appended
// per listing per scan whether or not the price moved.
type PriceHistoryEntry struct {
	ID         int64     `json:"id"`
	ListingID  string    `json:"listing_id"`
	Price      *int      `json:"price"`
	PriceText  string    `json:"price_text"`
	RecordedAt time.Time `json:"recorded_at"`

	// Joined listing context for the all-histories chart query.
	ExteriorColor string `json:"exterior_color,omitempty"`
	Dealer        string `json:"dealer,omitempty"`
}

// ScanLogEntry is one immutable journal row per scan cycle. Failed scans
// journal too, with zero counts, so monitoring can spot silent gaps.
type ScanLogEntry struct {
	ID              int64     `json:"id"`
	ScrapedAt       time.Time `json:"scraped_at"`
	ListingsFound   int       `json:"listings_found"`
	NewListings     int       `json:"new_listings"`
	PriceChanges    int       `json:"price_changes"`
	RemovedListings int       `json:"removed_listings"`
	Status          string    `json:"status"`
}

// Stats is the aggregate dashboard view over the store.
type Stats struct {
	Active          int        `json:"active_listings"`
	Removed         int        `json:"removed_listings"`
	TotalSeen       int        `json:"total_seen"`
	AvgPrice        *float64   `json:"avg_price"`
	MinPrice        *int       `json:"min_price"`
	MaxPrice        *int       `json:"max_price"`
	AvgMileage      *float64   `json:"avg_mileage"`
	MeetsTargetYear int        `json:"meets_target_year"`
	NewToday        int        `json:"new_today"`
	LastScrape      *time.Time `json:"last_scrape"`
	TotalScrapes    int        `json:"total_scrapes"`
}
