package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diagsvc/internal/apperr"
	"diagsvc/internal/metrics"
	"diagsvc/internal/models"
	"diagsvc/internal/version"
)

// HostProbe samples host and process state. Implementations never fail.
type HostProbe interface {
	Sample(ctx context.Context) models.HostStats
	ProcessSample(ctx context.Context) models.ProcessStats
	Platform(ctx context.Context) models.PlatformInfo
	Runtime() models.RuntimeSnapshot
}

// SystemHandlers serves the diagnostic endpoints. All fields are read-only
// after construction.
type SystemHandlers struct {
	identity models.AppIdentity
	probe    HostProbe
	sink     metrics.Sink
	log      *zap.Logger
}

// NewSystemHandlers wires the handlers. A nil sink disables /metrics.
func NewSystemHandlers(identity models.AppIdentity, probe HostProbe, sink metrics.Sink, log *zap.Logger) *SystemHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemHandlers{
		identity: identity,
		probe:    probe,
		sink:     metrics.OrNoop(sink),
		log:      log,
	}
}

func respond(c *gin.Context, env models.Envelope) {
	c.JSON(env.StatusCode, env)
}

// Index lists the service routes.
func (h *SystemHandlers) Index(c *gin.Context) {
	respond(c, models.Success(gin.H{
		"message":     "Welcome to " + h.identity.Name,
		"name":        h.identity.Name,
		"version":     h.identity.Version,
		"environment": h.identity.Environment,
		"endpoints":   Routes,
	}))
}

// Ping is the one endpoint that answers in plain text.
func (h *SystemHandlers) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// Healthz reports reachability; there are no downstream dependencies to
// check, so it is always healthy when it answers at all.
func (h *SystemHandlers) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	proc := h.probe.ProcessSample(ctx)
	host := h.probe.Sample(ctx)
	respond(c, models.Success(gin.H{
		"status":      "healthy",
		"uptime":      proc.UptimeSeconds,
		"memory":      host.Memory,
		"version":     h.identity.Version,
		"environment": h.identity.Environment,
	}))
}

// Info returns identity, platform, host and runtime details.
func (h *SystemHandlers) Info(c *gin.Context) {
	ctx := c.Request.Context()
	platform := h.probe.Platform(ctx)
	host := h.probe.Sample(ctx)
	respond(c, models.Success(gin.H{
		"app":         h.identity,
		"platform":    platform.String(),
		"system":      platform,
		"memory":      host.Memory,
		"cpu":         host.CPU,
		"process":     h.probe.ProcessSample(ctx),
		"runtime":     h.probe.Runtime(),
		"environment": h.identity.Environment,
		"build":       version.Info(),
		"boot_time":   h.identity.BootTimestamp.Format(models.TimestampLayout),
	}))
}

// Version returns the service identity.
func (h *SystemHandlers) Version(c *gin.Context) {
	build := version.Info()
	respond(c, models.Success(gin.H{
		"version":     h.identity.Version,
		"name":        h.identity.Name,
		"environment": h.identity.Environment,
		"commit":      build.Commit,
		"build_date":  build.Date,
	}))
}

// Metrics renders the sink as text, or answers 204 when there is nothing
// to show. It never fails.
func (h *SystemHandlers) Metrics(c *gin.Context) {
	text, ok := h.renderMetrics()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, metrics.ContentType, []byte(text))
}

func (h *SystemHandlers) renderMetrics() (text string, ok bool) {
	if !metrics.Enabled(h.sink) {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			h.log.Debug("metrics render panicked", zap.Any("panic", r))
			text, ok = "", false
		}
	}()
	text, err := h.sink.RenderText()
	if err != nil {
		h.log.Debug("metrics render failed", zap.Error(err))
		return "", false
	}
	return text, true
}

// NotFound handles every unmatched route.
func (h *SystemHandlers) NotFound(c *gin.Context) {
	_ = c.Error(apperr.NotFound("Resource not found"))
}
