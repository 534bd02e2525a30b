package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"spesetools/internal/log"
	"spesetools/internal/mcp"
	"spesetools/internal/middleware/ratelimit"
	"spesetools/internal/middleware/security"
	"spesetools/internal/middleware/trace"
)

// MaxBodyBytes bounds a single POST /mcp payload.
const MaxBodyBytes = 1 << 20

const readyTimeout = 2 * time.Second

// Pinger is anything whose reachability decides readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes NewServer. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *log.Logger
}

// rejectedCode is the implementation-defined JSON-RPC server error sent
// when a request is refused before reaching the MCP handler.
const rejectedCode = -32000

// Server serves the MCP endpoint and health checks.
type Server struct {
	http.Server
	ready        Pinger
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
// ready may be nil, in which case /readyz always succeeds.
func NewServer(addr string, rpc *mcp.Server, ready Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	trusted := opts.TrustedProxies
	if trusted == nil {
		trusted = security.DefaultTrustedProxies
	}
	ips := security.MustIPResolver(trusted...)

	s := &Server{
		ready:   ready,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(ips.ClientIP, logger),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", s.limiter.Middleware(ips.ClientIP, s.rateLimited)(limitBody(rpc.HTTPHandler())))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// limitBody caps request bodies at MaxBodyBytes. Declared oversize bodies
// are refused before the MCP handler sees them.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > MaxBodyBytes {
			writeRPCError(w, http.StatusRequestEntityTooLarge, rejectedCode, "Request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", log.FieldPath, r.URL.Path)
	writeRPCError(w, http.StatusTooManyRequests, rejectedCode, "Rate limit exceeded. Please try again later.")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeRPC(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error":   map[string]any{"code": code, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, _ := json.Marshal(v)
	writeRPC(w, status, b)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
