package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/history"
	"tfm-tracker/internal/metrics"
	"tfm-tracker/internal/middleware"
	"tfm-tracker/internal/service"
	"tfm-tracker/internal/store"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

var allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

type Server struct {
	docs    *service.DocumentService
	stats   *service.StatsService
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewServer(docs *service.DocumentService, stats *service.StatsService, m *metrics.Metrics, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{docs: docs, stats: stats, metrics: m, cfg: cfg, logger: logger}
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type saveResponse struct {
	response
	LastUpdated string    `json:"lastUpdated"`
	Stats       saveStats `json:"stats"`
}

type saveStats struct {
	Players int `json:"players"`
	Games   int `json:"games"`
}

type recalculateResponse struct {
	response
	LastUpdated string `json:"lastUpdated"`
	Players     int    `json:"players"`
	Games       int    `json:"games"`
}

// Handler mounts every route behind request ids, panic recovery, CORS and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	})

	route := func(path string, methods []string, h http.HandlerFunc) {
		handler := middleware.Chain(s.methods(methods, h),
			middleware.RequestID(s.logger),
			middleware.Recover(s.logger),
			c.Handler,
		)
		mux.Handle(path, s.metrics.Instrument(path, handler))
	}

	route("/api/data", []string{http.MethodGet, http.MethodPost}, s.handleData)
	route("/api/sync", []string{http.MethodGet}, s.handleSync)
	route("/api/export", []string{http.MethodGet}, s.handleExport)
	route("/api/recalculate", []string{http.MethodGet, http.MethodPost}, s.handleRecalculate)
	route("/api/history", []string{http.MethodGet}, s.handleHistory)
	route("/api/rankings", []string{http.MethodGet}, s.handleRankings)
	route("/api/roster", []string{http.MethodGet}, s.handleRoster)
	route("/api/backups", []string{http.MethodGet}, s.handleBackups)

	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{Success: true, Message: "ok"})
	})

	return mux
}

// methods answers bare OPTIONS itself and rejects anything outside allowed.
func (s *Server) methods(allowed []string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			origin := "*"
			if !slices.Contains(s.cfg.AllowedOrigins, "*") && r.Header.Get("Origin") != "" {
				origin = r.Header.Get("Origin")
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		if !slices.Contains(allowed, r.Method) {
			w.Header().Set("Allow", strings.Join(append(slices.Clone(allowed), http.MethodOptions), ", "))
			writeJSON(w, http.StatusMethodNotAllowed, response{Message: "Method not allowed"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		body, err := s.docs.Current(r.Context())
		if err != nil {
			s.fail(w, r, err, "Failed to load data")
			return
		}
		writeRaw(w, http.StatusOK, body)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, response{Message: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, response{Message: "Failed to read request body"})
		return
	}

	res, err := s.docs.Save(r.Context(), payload)
	if err != nil {
		s.fail(w, r, err, "Failed to save data")
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{
		response:    response{Success: true, Message: "Data saved"},
		LastUpdated: res.LastUpdated,
		Stats:       saveStats{Players: res.Players, Games: res.Games},
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.docs.Sync(r.Context(), r.URL.Query().Get("timestamp"))
	if err != nil {
		s.fail(w, r, err, "Failed to check sync state")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := s.docs.Export(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to export data")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Filename))
	writeRaw(w, http.StatusOK, exp.Body)
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	res, err := s.docs.Recalculate(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to recalculate stats")
		return
	}
	writeJSON(w, http.StatusOK, recalculateResponse{
		response:    response{Success: true, Message: "Stats recalculated"},
		LastUpdated: res.LastUpdated,
		Players:     res.Players,
		Games:       res.Games,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	view, err := s.stats.History(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to build history")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	view, err := s.stats.Rankings(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.fail(w, r, err, "Failed to build rankings")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	players, err := s.stats.Roster(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to build roster")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.docs.Backups(r.Context())
	if err != nil {
		s.fail(w, r, err, "Failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

// fail maps service errors onto status codes. Client errors echo their message,
// anything else is logged and reported generically.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidPayload), errors.Is(err, history.ErrUnknownPeriod):
		writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
	case errors.Is(err, service.ErrNoDocument):
		writeJSON(w, http.StatusNotFound, response{Message: err.Error()})
	default:
		logger := zerolog.Ctx(r.Context())
		if logger.GetLevel() == zerolog.Disabled {
			logger = &s.logger
		}
		event := logger.Error().Err(err).Str("path", r.URL.Path)
		if errors.Is(err, store.ErrCorruptDocument) {
			event = event.Bool("corrupt", true)
		}
		event.Msg(message)
		writeJSON(w, http.StatusInternalServerError, response{Message: message})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"success":false,"message":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
