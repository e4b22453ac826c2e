package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/analytics"
	"github.com/ppiankov/promptarmor/internal/audit"
	"github.com/ppiankov/promptarmor/internal/model"
)

// maxEventBody caps POST /event payloads.
const maxEventBody = 1 << 20

// Config holds dashboard service configuration.
type Config struct {
	Port           int
	AllowedOrigins []string // websocket origin patterns; empty means same-origin only
}

// Server ingests telemetry events and pushes analytics snapshots to
// websocket subscribers.
type Server struct {
	cfg      Config
	agg      *analytics.Aggregator
	bc       *Broadcaster
	auditLog *audit.Log
	router   chi.Router
}

// New creates a dashboard server. auditLog may be nil.
func New(cfg Config, auditLog *audit.Log) *Server {
	agg := analytics.NewAggregator()
	s := &Server{
		cfg:      cfg,
		agg:      agg,
		bc:       NewBroadcaster(agg.Snapshot),
		auditLog: auditLog,
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/event", s.handleEvent)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWS)
	s.router = r

	return s
}

// Handler returns the HTTP handler serving all dashboard routes.
func (s *Server) Handler() http.Handler { return s.router }

// Broadcaster returns the server's subscriber registry.
func (s *Server) Broadcaster() *Broadcaster { return s.bc }

// Snapshot returns the current analytics snapshot.
func (s *Server) Snapshot() model.Snapshot { return s.agg.Snapshot() }

// Ingest applies ev to the aggregator, records it in the audit log when
// one is configured, and pushes the fresh snapshot to subscribers.
// Replacement originals are dropped on entry. Unknown event types are
// ignored and reported as not applied.
func (s *Server) Ingest(ctx context.Context, ev model.Event) bool {
	ev = ev.Redacted()
	if !s.agg.Apply(ev) {
		klog.V(2).InfoS("ignoring unknown event", "event_type", ev.EventType)
		return false
	}
	if s.auditLog != nil {
		if err := s.auditLog.RecordEvent(ev); err != nil {
			klog.ErrorS(err, "audit record failed", "event_id", ev.EventID)
		}
	}
	s.bc.PublishLatest(ctx)
	return true
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	// Publishing is not request-scoped.
	s.Ingest(context.WithoutCancel(r.Context()), ev)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agg.Snapshot())
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// and closes every subscriber.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.bc.Close()
		srv.Shutdown(shutCtx)
	}()

	klog.InfoS("dashboard listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
