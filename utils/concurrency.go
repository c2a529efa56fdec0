package utils

import (
	"sync"
	"time"
)

// WorkerPool runs detail-page fetches in a bounded number of goroutines,
// spacing requests out so the target site is never hammered.
type WorkerPool struct {
	maxWorkers  int
	rateLimitMs int
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and minimum
// interval between job starts.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		rateLimitMs: rateLimitMs,
		semaphore:   make(chan struct{}, maxWorkers),
		lastRequest: time.Now(),
	}
}

// Submit enqueues a job for execution in the pool.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.pace()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) pace() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	minInterval := time.Duration(wp.rateLimitMs) * time.Millisecond
	if elapsed := time.Since(wp.lastRequest); elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	wp.lastRequest = time.Now()
}

// SlugSet tracks listing ids already seen within one scan so repeated DOM
// nodes for the same offer collapse to a single record.
type SlugSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewSlugSet creates an empty SlugSet.
func NewSlugSet() *SlugSet {
	return &SlugSet{seen: make(map[string]struct{})}
}

// Add returns true if the slug was newly added, false if already present.
func (s *SlugSet) Add(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[slug]; exists {
		return false
	}
	s.seen[slug] = struct{}{}
	return true
}

// Size returns the number of unique slugs tracked.
func (s *SlugSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
