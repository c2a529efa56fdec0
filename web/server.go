package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"taycan-tracker/services"
	"taycan-tracker/storage"
	"taycan-tracker/utils"
)

// Server exposes the read-only dashboard API over the store, plus a manual
// scan trigger. It never writes to the store itself.
type Server struct {
	store       storage.Store
	logger      *utils.Logger
	targetYear  int
	staticDir   string
	triggerScan func()
}

// NewServer creates a dashboard Server. triggerScan runs a scan in the
// background; mutual exclusion with scheduled scans is the scanner's job.
func NewServer(store storage.Store, logger *utils.Logger, targetYear int,
	staticDir string, triggerScan func()) *Server {
	return &Server{
		store:       store,
		logger:      logger,
		targetYear:  targetYear,
		staticDir:   staticDir,
		triggerScan: triggerScan,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/listings", s.handleListings).Methods("GET")
	r.HandleFunc("/api/removed", s.handleRemoved).Methods("GET")
	r.HandleFunc("/api/price-history/{id}", s.handlePriceHistoryOne).Methods("GET")
	r.HandleFunc("/api/price-history", s.handlePriceHistoryAll).Methods("GET")
	r.HandleFunc("/api/scrape-log", s.handleScanLog).Methods("GET")
	r.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/api/scrape", s.handleScrape).Methods("POST")
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	return r
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.ActiveListings()
	if err != nil {
		s.fail(w, "load active listings", err)
		return
	}
	now := time.Now().UTC()
	out := make([]services.ExportListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, services.ToExportListing(l, now))
	}
	s.writeJSON(w, out)
}

func (s *Server) handleRemoved(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.RemovedListings(50)
	if err != nil {
		s.fail(w, "load removed listings", err)
		return
	}
	now := time.Now().UTC()
	out := make([]services.ExportListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, services.ToExportListing(l, now))
	}
	s.writeJSON(w, out)
}

func (s *Server) handlePriceHistoryOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	history, err := s.store.PriceHistory(id)
	if err != nil {
		s.fail(w, "load price history", err)
		return
	}
	s.writeJSON(w, history)
}

func (s *Server) handlePriceHistoryAll(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.AllPriceHistory()
	if err != nil {
		s.fail(w, "load price histories", err)
		return
	}
	s.writeJSON(w, history)
}

func (s *Server) handleScanLog(w http.ResponseWriter, r *http.Request) {
	log, err := s.store.ScanLog(30)
	if err != nil {
		s.fail(w, "load scan log", err)
		return
	}
	s.writeJSON(w, log)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(s.targetYear)
	if err != nil {
		s.fail(w, "load stats", err)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "started", "message": "Scan initiated"})
	go s.triggerScan()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.staticDir+"/index.html")
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("[web] Encode response: %v", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	s.logger.Error("[web] %s: %v", what, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": what + " failed"})
}
