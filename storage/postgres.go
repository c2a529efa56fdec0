package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"taycan-tracker/models"
)

// PostgresStore is the Record Store: listings, price history and the scan
// journal live in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, runs schema migrations, and returns a
// ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id                     TEXT PRIMARY KEY,
			title                  TEXT NOT NULL DEFAULT '',
			condition              TEXT NOT NULL DEFAULT '',
			price                  INTEGER,
			price_text             TEXT NOT NULL DEFAULT '',
			exterior_color         TEXT NOT NULL DEFAULT '',
			interior_color         TEXT NOT NULL DEFAULT '',
			interior_color_full    TEXT NOT NULL DEFAULT '',
			fuel_type              TEXT NOT NULL DEFAULT '',
			mileage                TEXT NOT NULL DEFAULT '',
			mileage_miles          INTEGER,
			registration_date      TEXT NOT NULL DEFAULT '',
			registration_year      INTEGER,
			previous_owners        INTEGER,
			power                  TEXT NOT NULL DEFAULT '',
			drivetrain             TEXT NOT NULL DEFAULT '',
			range_wltp             TEXT NOT NULL DEFAULT '',
			consumption            TEXT NOT NULL DEFAULT '',
			vin                    TEXT NOT NULL DEFAULT '',
			stock_number           TEXT NOT NULL DEFAULT '',
			dealer                 TEXT NOT NULL DEFAULT '',
			dealer_address         TEXT NOT NULL DEFAULT '',
			description            TEXT NOT NULL DEFAULT '',
			service_history        TEXT NOT NULL DEFAULT '',
			latest_maintenance     TEXT NOT NULL DEFAULT '',
			warranty               TEXT NOT NULL DEFAULT '',
			battery_warranty       TEXT NOT NULL DEFAULT '',
			equipment_highlights   TEXT,
			equipment_exterior     TEXT,
			equipment_transmission TEXT,
			equipment_wheels       TEXT,
			equipment_interior     TEXT,
			equipment_audio        TEXT,
			equipment_emobility    TEXT,
			equipment_lighting     TEXT,
			equipment_assistance   TEXT,
			image_url              TEXT NOT NULL DEFAULT '',
			detail_url             TEXT NOT NULL DEFAULT '',
			first_seen             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			removed                BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS price_history (
			id          SERIAL PRIMARY KEY,
			listing_id  TEXT NOT NULL REFERENCES listings(id),
			price       INTEGER,
			price_text  TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS scan_log (
			id               SERIAL PRIMARY KEY,
			scraped_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			listings_found   INTEGER NOT NULL DEFAULT 0,
			new_listings     INTEGER NOT NULL DEFAULT 0,
			price_changes    INTEGER NOT NULL DEFAULT 0,
			removed_listings INTEGER NOT NULL DEFAULT 0,
			status           TEXT NOT NULL DEFAULT 'success'
		);

		CREATE INDEX IF NOT EXISTS idx_listings_removed      ON listings(removed);
		CREATE INDEX IF NOT EXISTS idx_listings_price        ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_price_history_listing ON price_history(listing_id);
		CREATE INDEX IF NOT EXISTS idx_scan_log_scraped_at   ON scan_log(scraped_at);
	`)
	return err
}

// PriorStates returns the pre-scan state of every stored listing.
func (s *PostgresStore) PriorStates() (map[string]models.PriorState, error) {
	rows, err := s.db.Query(`SELECT id, price, removed FROM listings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: prior states: %w", err)
	}
	defer rows.Close()

	prior := make(map[string]models.PriorState)
	for rows.Next() {
		var id string
		var price sql.NullInt64
		var removed bool
		if err := rows.Scan(&id, &price, &removed); err != nil {
			return nil, fmt.Errorf("postgres: scan prior state: %w", err)
		}
		prior[id] = models.PriorState{Price: intPtr(price), Removed: removed}
	}
	return prior, rows.Err()
}

const listingColumns = `id, title, condition, price, price_text,
	exterior_color, interior_color, interior_color_full, fuel_type,
	mileage, mileage_miles, registration_date, registration_year, previous_owners,
	power, drivetrain, range_wltp, consumption, vin, stock_number,
	dealer, dealer_address, description, service_history, latest_maintenance,
	warranty, battery_warranty,
	equipment_highlights, equipment_exterior, equipment_transmission,
	equipment_wheels, equipment_interior, equipment_audio,
	equipment_emobility, equipment_lighting, equipment_assistance,
	image_url, detail_url, first_seen, last_seen, removed`

const upsertListing = `
	INSERT INTO listings (id, title, condition, price, price_text,
		exterior_color, interior_color, interior_color_full, fuel_type,
		mileage, mileage_miles, registration_date, registration_year, previous_owners,
		power, drivetrain, range_wltp, consumption, vin, stock_number,
		dealer, dealer_address, description, service_history, latest_maintenance,
		warranty, battery_warranty,
		equipment_highlights, equipment_exterior, equipment_transmission,
		equipment_wheels, equipment_interior, equipment_audio,
		equipment_emobility, equipment_lighting, equipment_assistance,
		image_url, detail_url, first_seen, last_seen, removed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33, $34, $35, $36, $37, $38, $39, $39, FALSE)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		condition = EXCLUDED.condition,
		price = EXCLUDED.price,
		price_text = EXCLUDED.price_text,
		exterior_color = EXCLUDED.exterior_color,
		interior_color = EXCLUDED.interior_color,
		interior_color_full = EXCLUDED.interior_color_full,
		fuel_type = EXCLUDED.fuel_type,
		mileage = EXCLUDED.mileage,
		mileage_miles = EXCLUDED.mileage_miles,
		registration_date = EXCLUDED.registration_date,
		registration_year = EXCLUDED.registration_year,
		previous_owners = EXCLUDED.previous_owners,
		power = EXCLUDED.power,
		drivetrain = EXCLUDED.drivetrain,
		range_wltp = EXCLUDED.range_wltp,
		consumption = EXCLUDED.consumption,
		vin = EXCLUDED.vin,
		stock_number = EXCLUDED.stock_number,
		dealer = EXCLUDED.dealer,
		dealer_address = EXCLUDED.dealer_address,
		description = EXCLUDED.description,
		service_history = EXCLUDED.service_history,
		latest_maintenance = EXCLUDED.latest_maintenance,
		warranty = EXCLUDED.warranty,
		battery_warranty = EXCLUDED.battery_warranty,
		equipment_highlights = EXCLUDED.equipment_highlights,
		equipment_exterior = EXCLUDED.equipment_exterior,
		equipment_transmission = EXCLUDED.equipment_transmission,
		equipment_wheels = EXCLUDED.equipment_wheels,
		equipment_interior = EXCLUDED.equipment_interior,
		equipment_audio = EXCLUDED.equipment_audio,
		equipment_emobility = EXCLUDED.equipment_emobility,
		equipment_lighting = EXCLUDED.equipment_lighting,
		equipment_assistance = EXCLUDED.equipment_assistance,
		image_url = EXCLUDED.image_url,
		detail_url = EXCLUDED.detail_url,
		last_seen = EXCLUDED.last_seen,
		removed = FALSE`

// ApplyScan persists one classified scan as a single transaction: merged
// upserts for every observed listing, one price-history append each, removal
// flips for listings that vanished, and the journal row. Any error rolls the
// whole scan back.
func (s *PostgresStore) ApplyScan(result *models.ScanResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin scan tx: %w", err)
	}
	defer tx.Rollback()

	for _, l := range result.Observed {
		prev, err := getListingTx(tx, l.ID)
		if err != nil {
			return err
		}
		merged := models.Merge(prev, l)

		if _, err := tx.Exec(upsertListing, append(listingArgs(merged), result.ScrapedAt)...); err != nil {
			return fmt.Errorf("postgres: upsert %s: %w", l.ID, err)
		}

		// Observation log, not a change log: one row per listing per scan.
		if _, err := tx.Exec(
			`INSERT INTO price_history (listing_id, price, price_text, recorded_at) VALUES ($1, $2, $3, $4)`,
			l.ID, nullInt(l.Price), l.PriceText, result.ScrapedAt,
		); err != nil {
			return fmt.Errorf("postgres: price history %s: %w", l.ID, err)
		}
	}

	if len(result.RemovedIDs) > 0 {
		// first_seen/last_seen stay untouched: they record the last
		// successful observation.
		if _, err := tx.Exec(
			`UPDATE listings SET removed = TRUE WHERE NOT removed AND id = ANY($1)`,
			pq.Array(result.RemovedIDs),
		); err != nil {
			return fmt.Errorf("postgres: mark removed: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO scan_log (scraped_at, listings_found, new_listings, price_changes, removed_listings, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.ScrapedAt, result.ListingsFound, result.NewCount(),
		result.ChangedCount(), result.RemovedCount(), models.ScanStatusSuccess,
	); err != nil {
		return fmt.Errorf("postgres: scan log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit scan: %w", err)
	}
	return nil
}

// RecordScanFailure journals a scan that never reached reconciliation. It
// runs outside any scan transaction so the failure row survives a rollback.
func (s *PostgresStore) RecordScanFailure(scrapedAt time.Time, found int) error {
	_, err := s.db.Exec(
		`INSERT INTO scan_log (scraped_at, listings_found, status) VALUES ($1, $2, $3)`,
		scrapedAt, found, models.ScanStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("postgres: record scan failure: %w", err)
	}
	return nil
}

// ActiveListings returns not-removed listings ordered by price ascending.
func (s *PostgresStore) ActiveListings() ([]*models.Listing, error) {
	rows, err := s.db.Query(
		`SELECT ` + listingColumns + ` FROM listings WHERE NOT removed ORDER BY price ASC NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: active listings: %w", err)
	}
	return collectListings(rows)
}

// RemovedListings returns removed listings, most recently seen first.
func (s *PostgresStore) RemovedListings(limit int) ([]*models.Listing, error) {
	rows, err := s.db.Query(
		`SELECT `+listingColumns+` FROM listings WHERE removed ORDER BY last_seen DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: removed listings: %w", err)
	}
	return collectListings(rows)
}

// PriceHistory returns every price observation for one listing, oldest first.
func (s *PostgresStore) PriceHistory(listingID string) ([]*models.PriceHistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, listing_id, price, price_text, recorded_at
		 FROM price_history WHERE listing_id = $1 ORDER BY recorded_at ASC, id`, listingID)
	if err != nil {
		return nil, fmt.Errorf("postgres: price history: %w", err)
	}
	defer rows.Close()

	var entries []*models.PriceHistoryEntry
	for rows.Next() {
		e := &models.PriceHistoryEntry{}
		var price sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ListingID, &price, &e.PriceText, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan price history: %w", err)
		}
		e.Price = intPtr(price)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllPriceHistory returns the full observation log with listing context for
// the dashboard chart.
func (s *PostgresStore) AllPriceHistory() ([]*models.PriceHistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT ph.id, ph.listing_id, ph.price, ph.price_text, ph.recorded_at,
		        l.exterior_color, l.dealer
		 FROM price_history ph
		 JOIN listings l ON l.id = ph.listing_id
		 ORDER BY ph.recorded_at ASC, ph.id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: all price history: %w", err)
	}
	defer rows.Close()

	var entries []*models.PriceHistoryEntry
	for rows.Next() {
		e := &models.PriceHistoryEntry{}
		var price sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ListingID, &price, &e.PriceText, &e.RecordedAt,
			&e.ExteriorColor, &e.Dealer); err != nil {
			return nil, fmt.Errorf("postgres: scan all price history: %w", err)
		}
		e.Price = intPtr(price)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ScanLog returns the most recent journal entries, newest first.
func (s *PostgresStore) ScanLog(limit int) ([]*models.ScanLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, scraped_at, listings_found, new_listings, price_changes, removed_listings, status
		 FROM scan_log ORDER BY scraped_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan log: %w", err)
	}
	defer rows.Close()

	var entries []*models.ScanLogEntry
	for rows.Next() {
		e := &models.ScanLogEntry{}
		if err := rows.Scan(&e.ID, &e.ScrapedAt, &e.ListingsFound, &e.NewListings,
			&e.PriceChanges, &e.RemovedListings, &e.Status); err != nil {
			return nil, fmt.Errorf("postgres: scan log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats computes the aggregate dashboard numbers.
func (s *PostgresStore) Stats(targetYear int) (*models.Stats, error) {
	st := &models.Stats{}

	var avgPrice, avgMileage sql.NullFloat64
	var minPrice, maxPrice sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*) FILTER (WHERE NOT removed),
		       COUNT(*) FILTER (WHERE removed),
		       COUNT(*),
		       AVG(price) FILTER (WHERE NOT removed),
		       MIN(price) FILTER (WHERE NOT removed),
		       MAX(price) FILTER (WHERE NOT removed),
		       AVG(mileage_miles) FILTER (WHERE NOT removed),
		       COUNT(*) FILTER (WHERE NOT removed AND registration_year >= $1),
		       COUNT(*) FILTER (WHERE first_seen::date = NOW()::date)
		FROM listings`, targetYear,
	).Scan(&st.Active, &st.Removed, &st.TotalSeen, &avgPrice, &minPrice, &maxPrice,
		&avgMileage, &st.MeetsTargetYear, &st.NewToday)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats: %w", err)
	}
	if avgPrice.Valid {
		st.AvgPrice = &avgPrice.Float64
	}
	if avgMileage.Valid {
		st.AvgMileage = &avgMileage.Float64
	}
	st.MinPrice = intPtr(minPrice)
	st.MaxPrice = intPtr(maxPrice)

	var lastScrape sql.NullTime
	err = s.db.QueryRow(
		`SELECT COUNT(*), MAX(scraped_at) FROM scan_log`,
	).Scan(&st.TotalScrapes, &lastScrape)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan stats: %w", err)
	}
	if lastScrape.Valid {
		st.LastScrape = &lastScrape.Time
	}

	return st, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func getListingTx(tx *sql.Tx, id string) (*models.Listing, error) {
	row := tx.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	return l, nil
}

func collectListings(rows *sql.Rows) ([]*models.Listing, error) {
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	l := &models.Listing{}
	var price, mileageMiles, regYear, owners sql.NullInt64
	var highlights, exterior, transmission, wheels, interior, audio,
		emobility, lighting, assistance sql.NullString

	err := row.Scan(
		&l.ID, &l.Title, &l.Condition, &price, &l.PriceText,
		&l.ExteriorColor, &l.InteriorColor, &l.InteriorColorFull, &l.FuelType,
		&l.Mileage, &mileageMiles, &l.RegistrationDate, &regYear, &owners,
		&l.Power, &l.Drivetrain, &l.RangeWLTP, &l.Consumption, &l.VIN, &l.StockNumber,
		&l.Dealer, &l.DealerAddress, &l.Description, &l.ServiceHistory, &l.LatestMaintenance,
		&l.Warranty, &l.BatteryWarranty,
		&highlights, &exterior, &transmission,
		&wheels, &interior, &audio,
		&emobility, &lighting, &assistance,
		&l.ImageURL, &l.DetailURL, &l.FirstSeen, &l.LastSeen, &l.Removed,
	)
	if err != nil {
		return nil, err
	}

	l.Price = intPtr(price)
	l.MileageMiles = intPtr(mileageMiles)
	l.RegistrationYear = intPtr(regYear)
	l.PreviousOwners = intPtr(owners)
	l.Equipment = models.Equipment{
		Highlights:   DecodeOptions(highlights),
		Exterior:     DecodeOptions(exterior),
		Transmission: DecodeOptions(transmission),
		Wheels:       DecodeOptions(wheels),
		Interior:     DecodeOptions(interior),
		Audio:        DecodeOptions(audio),
		EMobility:    DecodeOptions(emobility),
		Lighting:     DecodeOptions(lighting),
		Assistance:   DecodeOptions(assistance),
	}
	return l, nil
}

// listingArgs returns the 38 data-column values in upsertListing order; the
// caller appends the scan timestamp.
func listingArgs(l *models.Listing) []any {
	return []any{
		l.ID, l.Title, l.Condition, nullInt(l.Price), l.PriceText,
		l.ExteriorColor, l.InteriorColor, l.InteriorColorFull, l.FuelType,
		l.Mileage, nullInt(l.MileageMiles), l.RegistrationDate, nullInt(l.RegistrationYear), nullInt(l.PreviousOwners),
		l.Power, l.Drivetrain, l.RangeWLTP, l.Consumption, l.VIN, l.StockNumber,
		l.Dealer, l.DealerAddress, l.Description, l.ServiceHistory, l.LatestMaintenance,
		l.Warranty, l.BatteryWarranty,
		EncodeOptions(l.Equipment.Highlights), EncodeOptions(l.Equipment.Exterior), EncodeOptions(l.Equipment.Transmission),
		EncodeOptions(l.Equipment.Wheels), EncodeOptions(l.Equipment.Interior), EncodeOptions(l.Equipment.Audio),
		EncodeOptions(l.Equipment.EMobility), EncodeOptions(l.Equipment.Lighting), EncodeOptions(l.Equipment.Assistance),
		l.ImageURL, l.DetailURL,
	}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
