package report

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/types"
)

// Server exposes the run reports under a results root over HTTP. Reports are
// re-scanned per request; the result tree is small and may grow while the
// server runs.
type Server struct {
	root   string
	logger *logger.Logger
	router *mux.Router
}

func NewServer(root string, logger *logger.Logger) *Server {
	s := &Server{
		root:   root,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/runs", s.handleListRuns).Methods(http.MethodGet)
	s.router.HandleFunc("/api/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	s.router.HandleFunc("/api/runs/{id}/equity", s.handleGetEquity).Methods(http.MethodGet)
	s.router.HandleFunc("/api/runs/{id}/trades", s.handleGetTrades).Methods(http.MethodGet)

	return s
}

// Handler returns the http handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reports, err := s.loadAll()
	if err != nil {
		s.writeError(w, err)

		return
	}

	summaries := make([]types.RunStats, 0, len(reports))
	for _, report := range reports {
		summaries = append(summaries, report.Stats)
	}

	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	report, ok := s.findRun(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetEquity(w http.ResponseWriter, r *http.Request) {
	report, ok := s.findRun(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, report.EquityCurve)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	report, ok := s.findRun(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, report.Trades)
}

func (s *Server) loadAll() ([]Report, error) {
	dirs, err := Discover(s.root)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(dirs))

	for _, dir := range dirs {
		report, err := Load(dir)
		if err != nil {
			s.logger.Warn("Skipping unreadable report",
				zap.String("dir", dir),
				zap.Error(err),
			)

			continue
		}

		reports = append(reports, report)
	}

	return reports, nil
}

func (s *Server) findRun(w http.ResponseWriter, id string) (Report, bool) {
	reports, err := s.loadAll()
	if err != nil {
		s.writeError(w, err)

		return Report{}, false
	}

	for _, report := range reports {
		if report.Stats.ID == id {
			return report, true
		}
	}

	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found: " + id})

	return Report{}, false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("Request failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
