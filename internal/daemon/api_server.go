package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"manifestboard/internal/ack"
	"manifestboard/internal/api"
	"manifestboard/internal/config"
	"manifestboard/internal/logging"
)

const maxRequestBody = 64 << 10

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/view", srv.handleView)
	mux.HandleFunc("POST /api/ack", srv.handleAck)
	mux.HandleFunc("GET /api/history", srv.handleHistory)
	mux.HandleFunc("GET /api/mute", srv.handleMuteGet)
	mux.HandleFunc("POST /api/mute", srv.handleMuteSet)
	mux.HandleFunc("POST /api/mute/toggle", srv.handleMuteToggle)
	mux.HandleFunc("POST /api/reload", srv.handleReload)
	mux.HandleFunc("GET /api/collisions", srv.handleCollisions)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	srv.handler = authMiddleware(cfg.Paths.APIToken, mux)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// address returns the bound listener address once started.
func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.View(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	payload := api.FromView(view, s.daemon.now())
	payload.Announcement = s.daemon.Announcement(view).Text
	cadence := s.daemon.scheduler.Cadence()
	c := api.FromCadence(cadence.AckPoll, cadence.Refresh)
	payload.Cadence = &c
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleAck(w http.ResponseWriter, r *http.Request) {
	var req api.AckRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.daemon.Acknowledge(r.Context(), AckRequest{
		Date:         req.Date,
		ManifestTime: req.ManifestTime,
		Carrier:      req.Carrier,
		User:         req.User,
		Reason:       req.Reason,
	})
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, api.AckResponse{Acknowledgment: api.FromRecord(rec)})
	case errors.Is(err, ack.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotActive):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotScheduled):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		date = s.daemon.now().Format(time.DateOnly)
	}
	manifestTime := strings.TrimSpace(q.Get("time"))
	carrier := strings.TrimSpace(q.Get("carrier"))
	if manifestTime == "" || carrier == "" {
		s.writeError(w, http.StatusBadRequest, "time and carrier are required")
		return
	}
	entries, err := s.daemon.History(r.Context(), date, manifestTime, carrier)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	key := ack.NewKey(date, manifestTime, carrier)
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{
		Date:         key.Date,
		ManifestTime: key.ManifestTime,
		Carrier:      key.Carrier,
		Entries:      api.FromHistory(entries),
	})
}

func (s *apiServer) handleMuteGet(w http.ResponseWriter, r *http.Request) {
	state := s.daemon.MuteState(r.Context())
	s.writeJSON(w, http.StatusOK, api.MuteResponse{State: api.FromMuteState(state, s.daemon.now())})
}

func (s *apiServer) handleMuteSet(w http.ResponseWriter, r *http.Request) {
	var req api.MuteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Minutes < 0 {
		s.writeError(w, http.StatusBadRequest, "minutes must not be negative")
		return
	}
	state, message, err := s.daemon.SetMute(r.Context(), req.Muted, req.User, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.MuteResponse{State: api.FromMuteState(state, s.daemon.now()), Message: message})
}

func (s *apiServer) handleMuteToggle(w http.ResponseWriter, r *http.Request) {
	var req api.MuteToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Minutes < 0 {
		s.writeError(w, http.StatusBadRequest, "minutes must not be negative")
		return
	}
	state, message, err := s.daemon.ToggleMute(r.Context(), req.User, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.MuteResponse{State: api.FromMuteState(state, s.daemon.now()), Message: message})
}

func (s *apiServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Reload(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleCollisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, total, err := s.daemon.Collisions(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.CollisionsResponse{Collisions: api.FromCollisions(entries), Total: total})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      st.Running,
		PID:          st.PID,
		InstanceID:   st.InstanceID,
		Station:      s.daemon.cfg.Station.Name,
		User:         s.daemon.cfg.Station.User,
		SharedDir:    s.daemon.cfg.Paths.SharedDir,
		LockFilePath: st.LockFilePath,
		JournalPath:  st.JournalPath,
		Severity:     st.Severity.String(),
		Cadence:      api.FromCadence(st.Cadence.AckPoll, st.Cadence.Refresh),
		Checks:       api.FromChecks(st.Checks),
	}
	if !st.StartedAt.IsZero() {
		payload.StartedAt = st.StartedAt.Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// decode reads a JSON body. An empty body decodes to the zero request.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
