// Package mcpgo exposes basket planning and product substitution as MCP tools
package mcpgo

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/noot-app/mealbasket-mcp-server/internal/auth"
	"github.com/noot-app/mealbasket-mcp-server/internal/basket"
	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/config"
	"github.com/noot-app/mealbasket-mcp-server/internal/metrics"
	"github.com/noot-app/mealbasket-mcp-server/internal/substitute"
	"github.com/noot-app/mealbasket-mcp-server/internal/version"
	"golang.org/x/time/rate"
)

const healthCacheDuration = 10 * time.Second

// responseRecorder wraps http.ResponseWriter to capture response details
type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int
	headerWritten bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.headerWritten {
		return
	}
	r.statusCode = code
	r.headerWritten = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.headerWritten {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(data)
	r.bytesWritten += n
	return n, err
}

// Flush keeps streamed MCP responses working through the recorder
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Options tunes the server around its catalog
type Options struct {
	CatalogTimeout    time.Duration
	MaxBaskets        int
	DefaultStore      string
	RequestsPerMinute int
	Burst             int
	Planner           basket.Options
}

// OptionsFromConfig maps the loaded config onto server options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CatalogTimeout:    cfg.Catalog.Timeout,
		MaxBaskets:        cfg.Baskets.Max,
		DefaultStore:      cfg.Basket.DefaultStore,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		Planner:           basket.DefaultOptions(),
	}
}

// Server wraps the mark3labs MCP server with the basket planner, substitution engine and basket store
type Server struct {
	mcpServer *server.MCPServer
	source    catalog.Source
	catalog   catalog.Catalog
	builder   *basket.Builder
	engine    *substitute.Engine
	baskets   *Store
	auth      *auth.BearerTokenAuth
	metrics   *metrics.Collector
	limiter   *rate.Limiter
	opts      Options
	log       *slog.Logger

	healthMu        sync.RWMutex
	lastHealthCheck time.Time
	lastHealthError error
}

// NewServer creates the MCP server. Lookups made by the planner and the substitution
// engine are counted by the collector and bounded by the catalog timeout.
func NewServer(source catalog.Source, authenticator *auth.BearerTokenAuth, collector *metrics.Collector, opts Options, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"Meal Basket MCP Server",
		version.Tag(),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithLogging(),
	)

	if collector == nil {
		collector = metrics.New()
	}

	cat := catalog.WithTimeout(collector.Catalog(source), opts.CatalogTimeout)

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60), burst)
	}

	s := &Server{
		mcpServer: mcpServer,
		source:    source,
		catalog:   cat,
		builder:   basket.NewBuilder(cat, opts.Planner, logger),
		engine:    substitute.NewEngine(cat, logger),
		baskets:   NewStore(opts.MaxBaskets),
		auth:      authenticator,
		metrics:   collector,
		limiter:   limiter,
		opts:      opts,
		log:       logger,
	}

	s.addTools()
	return s
}

// checkHealthWithCache tests the catalog at most once per healthCacheDuration
func (s *Server) checkHealthWithCache(ctx context.Context) error {
	s.healthMu.RLock()
	if time.Since(s.lastHealthCheck) < healthCacheDuration {
		err := s.lastHealthError
		s.healthMu.RUnlock()
		s.log.Debug("Health check: using cached result", "cached_error", err != nil)
		return err
	}
	s.healthMu.RUnlock()

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	if time.Since(s.lastHealthCheck) < healthCacheDuration {
		return s.lastHealthError
	}

	s.log.Debug("Health check: testing catalog")
	err := s.source.TestConnection(ctx)
	s.lastHealthCheck = time.Now()
	s.lastHealthError = err
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := s.checkHealthWithCache(r.Context()); err != nil {
		s.log.Error("Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"baskets": s.baskets.Len(),
	})
}

// rateLimit rejects requests beyond the token bucket with 429
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.RateLimited()
			s.log.Warn("Rate limit exceeded", "remote_addr", r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the HTTP routes: /health and /metrics are open, /mcp needs the bearer token
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)

	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovery := recover(); recovery != nil {
				s.log.Error("MCP endpoint panic recovered",
					"panic", recovery,
					"method", r.Method,
					"remote_addr", r.RemoteAddr)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("Internal Server Error"))
			}
		}()

		s.log.Debug("MCP request received",
			"method", r.Method,
			"content_length", r.ContentLength,
			"remote_addr", r.RemoteAddr)

		recorder := &responseRecorder{ResponseWriter: w}
		streamableServer.ServeHTTP(recorder, r)

		s.log.Debug("MCP response sent",
			"status_code", recorder.statusCode,
			"response_size", recorder.bytesWritten)
	})

	mux.Handle("/mcp", s.rateLimit(s.auth.Middleware(mcpHandler)))
	return mux
}

// ServeStdio serves the MCP server over stdio (no auth for local use)
func (s *Server) ServeStdio() error {
	s.log.Info("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer)
}

// Baskets exposes the basket store
func (s *Server) Baskets() *Store {
	return s.baskets
}

// structured returns resp as structured content with an indented JSON text fallback
func (s *Server) structured(tool string, resp any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		s.log.Error("Failed to marshal response", "tool", tool, "error", err)
		return mcp.NewToolResultError("Failed to marshal response: " + err.Error()), nil
	}
	s.log.Debug("Returning structured result", "tool", tool, "response_size", len(responseJSON))
	return mcp.NewToolResultStructured(resp, string(responseJSON)), nil
}

// instrument records the call duration and whether the tool returned an error result
func (s *Server) instrument(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		s.log.Debug("Tool call", "tool", tool, "arguments", request.GetArguments())

		result, err := handler(ctx, request)

		var status error
		switch {
		case err != nil:
			status = err
		case result != nil && result.IsError:
			status = errToolResult
		}
		s.metrics.ToolCall(tool, status, time.Since(start))
		return result, err
	}
}
