package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"lora-console/pkg/auth"
	"lora-console/pkg/logger"
	"lora-console/pkg/model"
	"lora-console/pkg/store"
	"lora-console/pkg/ttn"
)

// Upstream is the subset of the TTN client the console proxies to.
type Upstream interface {
	ListApplications(ctx context.Context, token, userID string) ([]model.Application, error)
	CreateApplication(ctx context.Context, token, userID string, app model.Application) (model.Application, error)
	UpdateApplication(ctx context.Context, token string, app model.Application) (model.Application, error)
	DeleteApplication(ctx context.Context, token, appID string) error
	ListAPIKeys(ctx context.Context, token, appID string) ([]model.APIKey, error)
	CreateAPIKey(ctx context.Context, token, appID, name string, rights []string) (model.APIKey, error)
	DeleteAPIKey(ctx context.Context, token, appID, keyID string) error
	CreateDevice(ctx context.Context, token, appID string, dev model.EndDevice) (model.EndDevice, error)
}

// Deps carries everything the handlers need.
type Deps struct {
	Store    store.NodeStore
	Sessions *auth.Manager
	TTN      Upstream
	Stream   *NodeStream
	MQTT     model.MQTTInfo
	Version  string
	Logger   *slog.Logger
	Now      func() time.Time
}

type server struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers on the provided mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &server{Deps: d}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/v1/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": d.Version})
	})

	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET /api/v1/auth/session", s.authed(s.handleSession))

	mux.HandleFunc("GET /api/v1/dt723/nodes", s.authed(s.handleNodes))
	mux.HandleFunc("GET /api/v1/dt723/summary", s.authed(s.handleSummary))
	if d.Stream != nil {
		mux.HandleFunc("GET /api/v1/dt723/stream", s.authed(d.Stream.HandleStream))
	}

	mux.HandleFunc("GET /api/v1/applications", s.authed(s.handleListApplications))
	mux.HandleFunc("POST /api/v1/applications", s.authed(s.handleCreateApplication))
	mux.HandleFunc("PUT /api/v1/applications/{id}", s.authed(s.handleUpdateApplication))
	mux.HandleFunc("DELETE /api/v1/applications/{id}", s.authed(s.handleDeleteApplication))
	mux.HandleFunc("GET /api/v1/applications/{id}/api-keys", s.authed(s.handleListAPIKeys))
	mux.HandleFunc("POST /api/v1/applications/{id}/api-keys", s.authed(s.handleCreateAPIKey))
	mux.HandleFunc("DELETE /api/v1/applications/{id}/api-keys/{keyId}", s.authed(s.handleDeleteAPIKey))
	mux.HandleFunc("POST /api/v1/applications/{id}/devices", s.authed(s.handleCreateDevice))

	mux.HandleFunc("GET /api/v1/gateways", s.authed(s.handleListGateways))
	mux.HandleFunc("POST /api/v1/gateways", s.authed(s.handleCreateGateway))
	mux.HandleFunc("DELETE /api/v1/gateways/{id}", s.authed(s.handleDeleteGateway))
	mux.HandleFunc("POST /api/v1/gateways/import", s.authed(s.handleImportGateways))
	mux.HandleFunc("GET /api/v1/gateways/template", s.authed(s.handleGatewayTemplate))

	mux.HandleFunc("GET /api/v1/mqtt", s.authed(s.handleMQTT))
	mux.HandleFunc("GET /api/v1/dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("GET /api/v1/audit", s.authed(s.handleAudit))
}

// WithRequestID tags each request with an id for log correlation.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) model.Session {
	s, _ := ctx.Value(sessionKey{}).(model.Session)
	return s
}

// bearer reads the console token from the Authorization header, falling back
// to the access_token query parameter for websocket clients.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

func (s *server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		sess, err := s.Sessions.Authenticate(r.Context(), token)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = logger.WithUserID(ctx, sess.UserID)
		next(w, r.WithContext(ctx))
	}
}

func (s *server) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.Logger)
}

func (s *server) audit(ctx context.Context, action, target, detail string) {
	entry := model.AuditEntry{
		Actor:     sessionFrom(ctx).UserID,
		Action:    action,
		Target:    target,
		Detail:    detail,
		Timestamp: s.Now(),
	}
	if err := s.Store.AppendAudit(entry); err != nil {
		s.log(ctx).Warn("audit append failed", "action", action, "error", err)
	}
}

// upstreamError maps TTN client errors onto console responses.
func (s *server) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var apiErr *ttn.APIError
	switch {
	case errors.Is(err, ttn.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		http.Error(w, apiErr.Message, apiErr.Status)
	default:
		s.log(r.Context()).Error("upstream call failed", "op", op, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
