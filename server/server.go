// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package server exposes an anchor over JSON-RPC.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	log "github.com/inconshreveable/log15"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/rollupanchor/anchor"
)

const (
	ServiceName       = "anchor"
	StaticServiceName = "anchorstatic"

	Endpoint       = "/ext/anchor"
	StaticEndpoint = "/ext/anchor/static"
	MetricsPath    = "/metrics"
	HealthPath     = "/health"

	RequestIDHeader = "X-Request-Id"

	rateLimitKeys = 65536
	readTimeout   = 15 * time.Second
	writeTimeout  = 15 * time.Second
)

type Config struct {
	Auth *Authenticator

	RateLimitPerSecond int
	RateLimitBurst     int

	Gatherer prometheus.Gatherer
	Log      log.Logger
}

// NewHandler returns the HTTP handler serving [a].
func NewHandler(a *anchor.Anchor, config Config) (http.Handler, error) {
	service, err := newRPCServer(NewService(a, config.Log), ServiceName)
	if err != nil {
		return nil, err
	}
	staticService, err := newRPCServer(CreateStaticService(), StaticServiceName)
	if err != nil {
		return nil, err
	}

	store, err := memstore.New(rateLimitKeys)
	if err != nil {
		return nil, err
	}
	quota := throttled.RateQuota{
		MaxRate:  throttled.PerSec(config.RateLimitPerSecond),
		MaxBurst: config.RateLimitBurst,
	}
	limiter, err := throttled.NewGCRARateLimiter(store, quota)
	if err != nil {
		return nil, err
	}
	rateLimiter := throttled.HTTPRateLimiter{
		RateLimiter: limiter,
		VaryBy:      &throttled.VaryBy{RemoteAddr: true},
	}

	r := mux.NewRouter()
	r.Use(requestID)
	r.Handle(Endpoint, rateLimiter.RateLimit(config.Auth.Middleware(service))).Methods(http.MethodPost)
	r.Handle(StaticEndpoint, rateLimiter.RateLimit(staticService)).Methods(http.MethodPost)
	r.Handle(MetricsPath, promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle(HealthPath, healthHandler(a)).Methods(http.MethodGet)
	return r, nil
}

func newRPCServer(receiver interface{}, name string) (*rpc.Server, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return server, server.RegisterService(receiver, name)
}

// requestID tags every response with the request's ID, generating one if the
// client did not send it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type healthReply struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

func healthHandler(a *anchor.Anchor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reply := healthReply{
			Healthy: true,
			Version: anchor.Version.String(),
		}
		status := http.StatusOK
		if _, err := a.HasMessage(); err != nil {
			reply.Healthy = false
			reply.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	})
}

// Server serves the anchor's HTTP handler until its context is canceled.
type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	log             log.Logger
}

func New(handler http.Handler, shutdownTimeout time.Duration, logger log.Logger) *Server {
	return &Server{
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		log:             logger,
	}
}

// Serve accepts connections on [listener] until [ctx] is done, then waits up
// to the shutdown timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errs := make(chan error, 1)
	go func() {
		s.log.Info("serving", "addr", listener.Addr())
		errs <- s.server.Serve(listener)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down", "timeout", s.shutdownTimeout)
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
