package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fix44engine/fix44/fix"
	"github.com/fix44engine/fix44/internal/auth"
	"github.com/fix44engine/fix44/session"
)

// Sender places msg at the top of the outbound pipeline; pipeline.Pipeline
// satisfies it directly.
type Sender interface {
	Send(msg *fix.Message) error
}

// Snapshotter answers a point-in-time session status query;
// *session.Connection satisfies it directly.
type Snapshotter interface {
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// Router wires the inject and status endpoints behind the standard chi
// middleware stack, with RequestID/RealIP/Recoverer/Timeout composed
// ahead of the route tree.
type Router struct {
	Dict     *fix.GroupDict
	Sender   Sender
	Status   Snapshotter
	Verifier *auth.Verifier // nil disables bearer-token checking
}

// NewRouter returns the configured http.Handler.
func NewRouter(r Router) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(10 * time.Second))

	mux.Get("/health", r.liveness)

	mux.Group(func(g chi.Router) {
		if r.Verifier != nil {
			g.Use(r.authenticate)
		}
		g.Post("/inject", r.inject)
		g.Get("/status", r.status)
	})

	return mux
}

func (r Router) liveness(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r Router) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		if _, err := r.Verifier.Verify(token); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, req)
	})
}

// inject implements POST /inject: decode the JSON body, build a
// *fix.Message, and hand it to the top of the outbound pipeline.
func (r Router) inject(w http.ResponseWriter, req *http.Request) {
	var body InjectRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	msg, err := body.ToMessage(r.Dict)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := r.Sender.Send(msg); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (r Router) status(w http.ResponseWriter, req *http.Request) {
	if r.Status == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "status unavailable"})
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()
	snap, err := r.Status.Snapshot(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
