package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taycan-tracker/models"
	"taycan-tracker/storage"
	"taycan-tracker/utils"
)

// Exporter writes a static JSON snapshot of the store after each successful
// scan, so the dashboard can be served as plain files.
type Exporter struct {
	store      storage.Store
	logger     *utils.Logger
	targetYear int
}

// NewExporter creates an Exporter.
func NewExporter(store storage.Store, logger *utils.Logger, targetYear int) *Exporter {
	return &Exporter{store: store, logger: logger, targetYear: targetYear}
}

// ExportListing is the dashboard's JSON view of one listing, with the
// derived freshness fields the UI shows.
type ExportListing struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Condition         string           `json:"condition"`
	Price             *int             `json:"price"`
	PriceText         string           `json:"price_text"`
	ExteriorColor     string           `json:"exterior_color"`
	InteriorColor     string           `json:"interior_color"`
	InteriorColorFull string           `json:"interior_color_full"`
	FuelType          string           `json:"fuel_type"`
	Mileage           string           `json:"mileage"`
	MileageMiles      *int             `json:"mileage_miles"`
	RegistrationDate  string           `json:"registration_date"`
	RegistrationYear  *int             `json:"registration_year"`
	PreviousOwners    *int             `json:"previous_owners"`
	Power             string           `json:"power"`
	Drivetrain        string           `json:"drivetrain"`
	RangeWLTP         string           `json:"range_wltp"`
	Consumption       string           `json:"consumption"`
	VIN               string           `json:"vin"`
	StockNumber       string           `json:"stock_number"`
	Dealer            string           `json:"dealer"`
	DealerAddress     string           `json:"dealer_address"`
	Description       string           `json:"description"`
	ServiceHistory    string           `json:"service_history"`
	LatestMaintenance string           `json:"latest_maintenance"`
	Warranty          string           `json:"warranty"`
	BatteryWarranty   string           `json:"battery_warranty"`
	Equipment         ExportEquipment  `json:"equipment"`
	ImageURL          string           `json:"image_url"`
	DetailURL         string           `json:"detail_url"`
	FirstSeen         time.Time        `json:"first_seen"`
	LastSeen          time.Time        `json:"last_seen"`
	IsNew             bool             `json:"is_new"`
	DaysListed        int              `json:"days_listed"`
	DaysSinceSeen     *int             `json:"days_since_seen,omitempty"`
	DaysWasListed     *int             `json:"days_was_listed,omitempty"`
}

// ExportEquipment always serializes categories as arrays, never null.
type ExportEquipment struct {
	Highlights   []string `json:"highlights"`
	Exterior     []string `json:"exterior"`
	Transmission []string `json:"transmission"`
	Wheels       []string `json:"wheels"`
	Interior     []string `json:"interior"`
	Audio        []string `json:"audio"`
	EMobility    []string `json:"emobility"`
	Lighting     []string `json:"lighting"`
	Assistance   []string `json:"assistance"`
}

type exportPayload struct {
	Listings     []ExportListing             `json:"listings"`
	Removed      []ExportListing             `json:"removed"`
	Stats        *models.Stats               `json:"stats"`
	Log          []*models.ScanLogEntry      `json:"log"`
	PriceHistory []*models.PriceHistoryEntry `json:"priceHistory"`
	ExportedAt   time.Time                   `json:"exportedAt"`
}

// Export snapshots the store to path, creating parent directories as needed.
func (e *Exporter) Export(path string) error {
	now := time.Now().UTC()

	active, err := e.store.ActiveListings()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	removed, err := e.store.RemovedListings(50)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	stats, err := e.store.Stats(e.targetYear)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	log, err := e.store.ScanLog(30)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	history, err := e.store.AllPriceHistory()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	payload := exportPayload{
		Listings:     make([]ExportListing, 0, len(active)),
		Removed:      make([]ExportListing, 0, len(removed)),
		Stats:        stats,
		Log:          log,
		PriceHistory: history,
		ExportedAt:   now,
	}
	for _, l := range active {
		payload.Listings = append(payload.Listings, ToExportListing(l, now))
	}
	for _, l := range removed {
		payload.Removed = append(payload.Removed, ToExportListing(l, now))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("export: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}

	e.logger.Info("[export] Wrote %s (%.1f KB)", path, float64(len(data))/1024)
	return nil
}

// ToExportListing converts a stored listing to its dashboard view as of now.
func ToExportListing(l *models.Listing, now time.Time) ExportListing {
	out := ExportListing{
		ID:                l.ID,
		Title:             l.Title,
		Condition:         l.Condition,
		Price:             l.Price,
		PriceText:         l.PriceText,
		ExteriorColor:     l.ExteriorColor,
		InteriorColor:     l.InteriorColor,
		InteriorColorFull: l.InteriorColorFull,
		FuelType:          l.FuelType,
		Mileage:           l.Mileage,
		MileageMiles:      l.MileageMiles,
		RegistrationDate:  l.RegistrationDate,
		RegistrationYear:  l.RegistrationYear,
		PreviousOwners:    l.PreviousOwners,
		Power:             l.Power,
		Drivetrain:        l.Drivetrain,
		RangeWLTP:         l.RangeWLTP,
		Consumption:       l.Consumption,
		VIN:               l.VIN,
		StockNumber:       l.StockNumber,
		Dealer:            l.Dealer,
		DealerAddress:     l.DealerAddress,
		Description:       l.Description,
		ServiceHistory:    l.ServiceHistory,
		LatestMaintenance: l.LatestMaintenance,
		Warranty:          l.Warranty,
		BatteryWarranty:   l.BatteryWarranty,
		ImageURL:          l.ImageURL,
		DetailURL:         l.DetailURL,
		FirstSeen:         l.FirstSeen,
		LastSeen:          l.LastSeen,
		Equipment: ExportEquipment{
			Highlights:   emptyIfNil(l.Equipment.Highlights),
			Exterior:     emptyIfNil(l.Equipment.Exterior),
			Transmission: emptyIfNil(l.Equipment.Transmission),
			Wheels:       emptyIfNil(l.Equipment.Wheels),
			Interior:     emptyIfNil(l.Equipment.Interior),
			Audio:        emptyIfNil(l.Equipment.Audio),
			EMobility:    emptyIfNil(l.Equipment.EMobility),
			Lighting:     emptyIfNil(l.Equipment.Lighting),
			Assistance:   emptyIfNil(l.Equipment.Assistance),
		},
	}

	out.IsNew = sameDay(l.FirstSeen, now)
	out.DaysListed = daysBetween(l.FirstSeen, now)
	if l.Removed {
		sinceSeen := daysBetween(l.LastSeen, now)
		wasListed := daysBetween(l.FirstSeen, l.LastSeen)
		out.DaysSinceSeen = &sinceSeen
		out.DaysWasListed = &wasListed
	}
	return out
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
