package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"diagsvc/internal/config"
	"diagsvc/internal/handlers"
	"diagsvc/internal/metrics"
	"diagsvc/internal/models"
	"diagsvc/internal/probe"
	"diagsvc/internal/server"
	"diagsvc/internal/telemetry"
)

func main() {
	fx.New(
		fx.Provide(config.Load),
		appModule(),
	).Run()
}

// appModule wires everything except the configuration source.
func appModule() fx.Option {
	return fx.Options(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			newLogger,
			newIdentity,
			newTracer,
			newSink,
			newProbe,
			newRouter,
			newHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Environment {
	case models.EnvTest:
		return zap.NewNop(), nil
	case models.EnvProduction:
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log.With(zap.String("service", cfg.AppName)), nil
}

func newIdentity(cfg *config.Config) models.AppIdentity {
	return cfg.Identity(time.Now())
}

func newTracer(cfg *config.Config) (*telemetry.Tracer, error) {
	return telemetry.NewTracer(context.Background(), telemetry.Config{
		ServiceName:    cfg.AppName,
		ServiceVersion: cfg.AppVersion,
		Environment:    cfg.Environment,
		ExporterType:   telemetry.ExporterType(cfg.Tracing.Exporter),
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		OTLPInsecure:   cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
}

func newSink(cfg *config.Config) metrics.Sink {
	if !cfg.MetricsEnabled {
		return metrics.Noop{}
	}
	return metrics.NewRegistry("", true)
}

func newProbe() handlers.HostProbe {
	return probe.New()
}

func newRouter(cfg *config.Config, identity models.AppIdentity, p handlers.HostProbe, sink metrics.Sink, tracer *telemetry.Tracer, log *zap.Logger) *server.Server {
	if os.Getenv(gin.EnvGinMode) == "" {
		switch cfg.Environment {
		case models.EnvProduction:
			gin.SetMode(gin.ReleaseMode)
		case models.EnvTest:
			gin.SetMode(gin.TestMode)
		default:
			gin.SetMode(gin.DebugMode)
		}
	}
	return server.New(server.Deps{
		Config:   cfg,
		Identity: identity,
		Probe:    p,
		Sink:     sink,
		Tracer:   tracer,
		Logger:   log,
	})
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, router *server.Server, tracer *telemetry.Tracer, identity models.AppIdentity, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			log.Info("starting server",
				zap.String("addr", ln.Addr().String()),
				zap.String("name", identity.Name),
				zap.String("version", identity.Version),
				zap.String("environment", identity.Environment),
			)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()

			err := srv.Shutdown(ctx)
			router.Close()
			err = multierr.Append(err, tracer.Shutdown(ctx))
			if err != nil {
				log.Error("shutdown incomplete", zap.Error(err))
			} else {
				log.Info("server exited")
			}
			_ = log.Sync()
			return err
		},
	})
	return srv
}
