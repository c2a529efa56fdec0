package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taycan-tracker/models"
)

type fakeSession struct {
	cards     []models.RawCard
	cardsErr  error
	details   map[string]string // detail URL -> page text
	detailErr error
	closed    bool
}

func (f *fakeSession) FetchCards() ([]models.RawCard, error) { return f.cards, f.cardsErr }

func (f *fakeSession) FetchDetail(detailURL string) (string, error) {
	if f.detailErr != nil {
		return "", f.detailErr
	}
	return f.details[detailURL], nil
}

func (f *fakeSession) Close() { f.closed = true }

type fakeStore struct {
	prior    map[string]models.PriorState
	applied  *models.ScanResult
	applyErr error
	failures int
}

func (f *fakeStore) PriorStates() (map[string]models.PriorState, error) { return f.prior, nil }

func (f *fakeStore) ApplyScan(result *models.ScanResult) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = result
	return nil
}

func (f *fakeStore) RecordScanFailure(time.Time, int) error {
	f.failures++
	return nil
}

func (f *fakeStore) ActiveListings() ([]*models.Listing, error)               { return nil, nil }
func (f *fakeStore) RemovedListings(int) ([]*models.Listing, error)           { return nil, nil }
func (f *fakeStore) PriceHistory(string) ([]*models.PriceHistoryEntry, error) { return nil, nil }
func (f *fakeStore) AllPriceHistory() ([]*models.PriceHistoryEntry, error)    { return nil, nil }
func (f *fakeStore) ScanLog(int) ([]*models.ScanLogEntry, error)              { return nil, nil }
func (f *fakeStore) Stats(int) (*models.Stats, error)                         { return nil, nil }
func (f *fakeStore) Close() error                                             { return nil }

func newTestScanner(session *fakeSession, store *fakeStore) *Scanner {
	logger := newTestLogger()
	open := func(context.Context) (PageSession, error) { return session, nil }
	return NewScanner(open, store,
		NewExtractor(logger, "Porsche Taycan Turbo S"),
		NewNormalizer(logger),
		NewReconciler(logger),
		logger, 1, 0)
}

func TestScanNewListingJournalsSuccess(t *testing.T) {
	session := &fakeSession{
		cards: []models.RawCard{{Text: sampleCardText(), HTML: sampleCardHTML}},
		details: map[string]string{
			detailBaseURL + "taycan-ts-abc123": sampleDetailText(),
		},
	}
	store := &fakeStore{prior: map[string]models.PriorState{}}

	result, err := newTestScanner(session, store).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	if result.NewCount() != 1 || result.RemovedCount() != 0 {
		t.Errorf("new=%d removed=%d; want 1 and 0", result.NewCount(), result.RemovedCount())
	}
	if store.applied == nil {
		t.Fatal("ApplyScan was not called")
	}
	if store.failures != 0 {
		t.Errorf("journaled %d failures; want 0", store.failures)
	}
	// detail pass data made it into the observed record
	if store.applied.Observed[0].VIN != "WP0ZZZY1ZMSA12345" {
		t.Errorf("VIN = %q; detail data missing from observed listing", store.applied.Observed[0].VIN)
	}
	if !session.closed {
		t.Error("session was not closed")
	}
}

func TestScanEmptyObservedSetIsFatal(t *testing.T) {
	session := &fakeSession{cards: nil}
	store := &fakeStore{prior: map[string]models.PriorState{
		"existing": {Price: models.IntPtr(42995)},
	}}

	_, err := newTestScanner(session, store).Scan(context.Background())
	if err == nil {
		t.Fatal("Scan should fail when no cards are observed")
	}

	// nothing may be marked removed off an empty scan, and the failure is
	// journaled
	if store.applied != nil {
		t.Error("ApplyScan must not run for an empty observed set")
	}
	if store.failures != 1 {
		t.Errorf("journaled %d failures; want 1", store.failures)
	}
}

func TestScanFetchFailureIsFatal(t *testing.T) {
	session := &fakeSession{cardsErr: errors.New("browser crashed")}
	store := &fakeStore{}

	_, err := newTestScanner(session, store).Scan(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fetch cards") {
		t.Fatalf("err = %v; want fetch cards failure", err)
	}
	if store.failures != 1 {
		t.Errorf("journaled %d failures; want 1", store.failures)
	}
}

func TestScanDetailFailureFallsBackToCardData(t *testing.T) {
	session := &fakeSession{
		cards:     []models.RawCard{{Text: sampleCardText(), HTML: sampleCardHTML}},
		detailErr: errors.New("detail page timed out"),
	}
	store := &fakeStore{prior: map[string]models.PriorState{}}

	result, err := newTestScanner(session, store).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	l := result.Observed[0]
	if l.VIN != "" {
		t.Errorf("VIN = %q; want absent after detail failure", l.VIN)
	}
	if l.Price == nil || *l.Price != 42995 {
		t.Errorf("Price = %v; card data must survive a detail failure", l.Price)
	}
}

func TestScanPersistenceFailureJournals(t *testing.T) {
	session := &fakeSession{
		cards: []models.RawCard{{Text: sampleCardText(), HTML: sampleCardHTML}},
	}
	store := &fakeStore{
		prior:    map[string]models.PriorState{},
		applyErr: errors.New("constraint violation"),
	}

	_, err := newTestScanner(session, store).Scan(context.Background())
	if err == nil {
		t.Fatal("Scan should surface the persistence failure")
	}
	if store.failures != 1 {
		t.Errorf("journaled %d failures; want 1", store.failures)
	}
}
