// Package server assembles the gin engine: the middleware chain in its fixed
// order followed by the route table.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"diagsvc/internal/config"
	"diagsvc/internal/handlers"
	"diagsvc/internal/metrics"
	"diagsvc/internal/middleware"
	"diagsvc/internal/models"
	"diagsvc/internal/telemetry"
)

// Deps are the collaborators the router needs. Sink and Tracer are optional.
type Deps struct {
	Config   *config.Config
	Identity models.AppIdentity
	Probe    handlers.HostProbe
	Sink     metrics.Sink
	Tracer   *telemetry.Tracer
	Logger   *zap.Logger
}

// Server owns the engine and the background pieces of its middleware.
type Server struct {
	Engine  *gin.Engine
	limiter *middleware.RateLimiter
}

// New builds the router. Call Close when done to stop the rate limiter sweep.
func New(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := d.Config
	verbose := !cfg.IsProduction()

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = false
	// A nil list makes ClientIP ignore forwarding headers.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("ignoring trusted proxies", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	s := &Server{Engine: r}

	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders(cfg.CORSOrigin))

	// Logging, metrics and request protections are off in test mode.
	if !cfg.IsTest() {
		r.Use(middleware.RequestLogger(log))
		r.Use(middleware.RecordMetrics(d.Sink, log))
		if cfg.RateLimitRPS > 0 {
			s.limiter = middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst).
				Exempt("/healthz", "/ping")
			r.Use(s.limiter.Middleware())
		}
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	r.Use(middleware.Trace(d.Tracer))
	r.Use(middleware.Recover(log, verbose))
	r.Use(middleware.RenderErrors(log, verbose))
	r.Use(middleware.Preflight())

	h := handlers.NewSystemHandlers(d.Identity, d.Probe, d.Sink, log)
	routes := map[string]gin.HandlerFunc{
		"/":        h.Index,
		"/ping":    h.Ping,
		"/healthz": h.Healthz,
		"/info":    h.Info,
		"/version": h.Version,
		"/echo":    h.Echo,
		"/metrics": h.Metrics,
	}
	for _, rt := range handlers.Routes {
		r.Handle(rt.Method, rt.Path, routes[rt.Path])
	}
	r.NoRoute(h.NotFound)

	return s
}

// ServeHTTP lets the Server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.Engine.ServeHTTP(w, req)
}

// Close stops background work started by the middleware.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
