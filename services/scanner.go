package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taycan-tracker/models"
	"taycan-tracker/storage"
	"taycan-tracker/utils"
)

// PageSession is the browsing session the scanner drives for one cycle.
type PageSession interface {
	FetchCards() ([]models.RawCard, error)
	FetchDetail(detailURL string) (string, error)
	Close()
}

// OpenSession launches a fresh browsing session.
type OpenSession func(ctx context.Context) (PageSession, error)

// Scanner runs one full scan cycle: fetch, extract, enrich with detail
// pages, reconcile against the store, persist, journal. A mutex guarantees
// scans never overlap, whether triggered by the scheduler or the API.
type Scanner struct {
	open       OpenSession
	store      storage.Store
	extractor  *Extractor
	normalizer *Normalizer
	reconciler *Reconciler
	logger     *utils.Logger

	maxConcurrency int
	rateLimitMs    int

	mu sync.Mutex
}

// NewScanner wires the pipeline together.
func NewScanner(open OpenSession, store storage.Store, extractor *Extractor,
	normalizer *Normalizer, reconciler *Reconciler, logger *utils.Logger,
	maxConcurrency, rateLimitMs int) *Scanner {
	return &Scanner{
		open:           open,
		store:          store,
		extractor:      extractor,
		normalizer:     normalizer,
		reconciler:     reconciler,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		rateLimitMs:    rateLimitMs,
	}
}

// Scan executes one cycle and returns its classification. Scan-fatal errors
// (no cards, store rejection) still journal a failed entry before returning,
// so a dead cycle never looks like a quiet one. A scan that finds cards but
// loses individual detail pages proceeds on card-level data.
func (s *Scanner) Scan(ctx context.Context) (*models.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	now := start.UTC()
	s.logger.Info("[scan] Starting scan cycle")

	session, err := s.open(ctx)
	if err != nil {
		s.journalFailure(now, 0)
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	cards, err := session.FetchCards()
	if err != nil {
		s.journalFailure(now, 0)
		return nil, fmt.Errorf("fetch cards: %w", err)
	}

	observed := s.extractor.ExtractCards(cards)
	if len(observed) == 0 {
		// An empty observed set would read as "everything removed", so the
		// scan dies here instead of reconciling.
		s.journalFailure(now, 0)
		return nil, fmt.Errorf("search page yielded no listings (%d raw cards)", len(cards))
	}

	s.enrichWithDetails(session, observed)

	prior, err := s.store.PriorStates()
	if err != nil {
		s.journalFailure(now, len(observed))
		return nil, fmt.Errorf("load prior state: %w", err)
	}

	result := s.reconciler.Reconcile(observed, prior, now)

	if err := s.store.ApplyScan(result); err != nil {
		s.journalFailure(now, result.ListingsFound)
		return nil, fmt.Errorf("apply scan: %w", err)
	}

	s.logger.Info("[scan] Cycle complete in %.1fs", time.Since(start).Seconds())
	return result, nil
}

// enrichWithDetails fetches each listing's detail page through a bounded
// worker pool and folds the results in. Fetches may finish in any order;
// each job owns exactly one slice slot. A failed detail page just leaves its
// listing on card-level data. Reconciliation starts only after Wait returns.
func (s *Scanner) enrichWithDetails(session PageSession, observed []*models.Listing) {
	pool := utils.NewWorkerPool(s.maxConcurrency, s.rateLimitMs)

	for i := range observed {
		i := i
		l := observed[i]
		pool.Submit(func() {
			text, err := session.FetchDetail(l.DetailURL)
			if err != nil {
				s.logger.Warn("[scan] Detail page failed for %s, keeping card data: %v", l.ID, err)
				return
			}
			observed[i] = s.normalizer.ApplyDetail(l, ParseDetailPage(text))
		})
	}
	pool.Wait()
}

func (s *Scanner) journalFailure(scrapedAt time.Time, found int) {
	if err := s.store.RecordScanFailure(scrapedAt, found); err != nil {
		s.logger.Error("[scan] Could not journal failed scan: %v", err)
	}
}
