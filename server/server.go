// Package server wires the gateway's HTTP surface (spec.md §6's North-bound
// routes) to the translation, streaming, and catalog packages, the way the
// teacher's proxy.Handler wires config/correction/loop into net/http. Unlike
// the teacher, routing here is a thin dispatcher: all translation logic
// lives in package translate/stream/schema, so a handler's job is read body,
// resolve model, call a proxy, write response.
package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"aigateway/catalog"
	"aigateway/gwlog"
	"aigateway/internal"
	"aigateway/upstream"
)

// Server holds every collaborator a request handler needs. It is safe for
// concurrent use: nothing here is mutated after NewServer returns except
// through the collaborators' own internal locking (CredentialPool,
// SettingsStore, the circuit breaker inside DirectProxy).
type Server struct {
	BaseModels []catalog.BaseModel

	Credentials upstream.CredentialPool
	Settings    upstream.SettingsStore
	Direct      upstream.DirectProxy
	Alternate   upstream.AlternateProxy

	SearchEnabled    bool
	AlternateEnabled bool
	KeepAliveEnabled bool

	// DescriptionFor optionally supplies a per-model description for
	// GET /v1/models, backed by a live-reloadable source. Nil is treated
	// as "no descriptions configured".
	DescriptionFor func(modelID string) (string, bool)

	LogBase   *logrus.Logger
	LogConfig gwlog.Config
}

// NewServer constructs a Server. LogBase/LogConfig are always set to a plain
// JSON logrus logger at INFO level with API-key masking, matching the
// teacher's simpleLoggerConfig fallback in main.go.
func NewServer(baseModels []catalog.BaseModel, creds upstream.CredentialPool, settings upstream.SettingsStore, direct upstream.DirectProxy, alternate upstream.AlternateProxy, searchEnabled, alternateEnabled, keepAliveEnabled bool) *Server {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	return &Server{
		BaseModels:       baseModels,
		Credentials:      creds,
		Settings:         settings,
		Direct:           direct,
		Alternate:        alternate,
		SearchEnabled:    searchEnabled,
		AlternateEnabled: alternateEnabled,
		KeepAliveEnabled: keepAliveEnabled,
		LogBase:          base,
		LogConfig:        gwlog.StaticConfig{MinLevel: gwlog.INFO, MaskKeys: true},
	}
}

// Routes returns the gateway's HTTP handler, with every request stamped
// with a request id (github.com/google/uuid, replacing the teacher's ad hoc
// timestamp-based generateRequestID) before it reaches a route handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("POST /v1/embedded", s.handleEmbeddings)
	return s.withRequestID(mux)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := internal.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Proxied-By", "aigateway")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logger(r *http.Request) gwlog.Logger {
	return gwlog.FromContext(r.Context(), s.LogBase, s.LogConfig)
}

func (s *Server) catalogOptions() catalog.Options {
	return catalog.Options{SearchEnabled: s.SearchEnabled, AlternateEnabled: s.AlternateEnabled}
}

// nowUnix exists so every handler stamps created/timestamp fields the same
// way without importing time directly in three files.
func nowUnix() int64 { return time.Now().Unix() }
