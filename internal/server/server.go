package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pantry/internal/handler"
	"github.com/dukerupert/pantry/internal/inventory"
	"github.com/dukerupert/pantry/internal/middleware"
	"github.com/dukerupert/pantry/internal/store"
	ws "github.com/dukerupert/pantry/internal/websocket"
)

// Backend requests a single view may trigger per minute.
const intentLimit = 60

type Config struct {
	// OriginPatterns are extra hosts allowed to open /ws.
	OriginPatterns []string
}

// Server exposes the inventory store to browser views: JSON state, intents
// that drive store actions, and a websocket feed of every change.
type Server struct {
	db          *sql.DB
	snapshots   *store.GrocerySnapshotStore
	store       *inventory.Store
	hub         *ws.Hub
	groceryH    *handler.GroceryHandler
	rateLimiter *middleware.RateLimiter
	cfg         Config
	logger      *slog.Logger
}

// New wires the store to the websocket hub. db may be nil when snapshots are
// disabled; it is only used by the health check.
func New(st *inventory.Store, db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	st.Subscribe(func(ev inventory.Event) {
		hub.Broadcast(ws.NewMessage("grocery", string(ev.Action), ev.ID, map[string]any{
			"seq":        ev.Seq,
			"is_loading": ev.State.IsLoading,
			"error":      ev.State.Error,
		}))
	})

	var snapshots *store.GrocerySnapshotStore
	if db != nil {
		snapshots = store.NewGrocerySnapshotStore(db)
	}

	return &Server{
		db:          db,
		snapshots:   snapshots,
		store:       st,
		hub:         hub,
		groceryH:    handler.NewGroceryHandler(st, logger.With("component", "grocery")),
		rateLimiter: middleware.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /api/state", s.groceryH.State)
	mux.HandleFunc("POST /api/refresh", s.limited(s.groceryH.Refresh))
	mux.HandleFunc("POST /api/groceries", s.limited(s.groceryH.Create))
	mux.HandleFunc("GET /api/groceries/{id}", s.limited(s.groceryH.Detail))
	mux.HandleFunc("PUT /api/groceries/{id}", s.limited(s.groceryH.Update))

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.OriginPatterns, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, intentLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	}
	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		savedAt, ok, err := s.snapshots.SavedAt(ctx)
		switch {
		case err != nil:
			s.logger.Error("health check", "error", err)
			status["status"] = "degraded"
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		case ok:
			status["snapshot_saved_at"] = savedAt.UTC().Format(time.RFC3339)
			status["snapshot_age"] = time.Since(savedAt).Round(time.Second).String()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
