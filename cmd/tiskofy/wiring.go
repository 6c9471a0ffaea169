package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/binaries"
	"github.com/beonanotherplanet/tiskofy/internal/process"
)

type toolchain struct {
	resolver *binaries.Resolver
	runner   *process.ExecRunner
	registry *prometheus.Registry
}

func newToolchain(opts *cliOptions) *toolchain {
	registry := prometheus.NewRegistry()
	return &toolchain{
		resolver: binaries.New(binaries.Options{
			InstallDir: opts.cfg.InstallDir,
			Logger:     opts.logger,
			Metrics:    binaries.NewPrometheusMetrics(registry),
		}),
		runner:   process.NewExecRunner(opts.logger),
		registry: registry,
	}
}

// serveMetrics exposes the registry on addr until the returned stop func is
// called.
func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", listener.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
