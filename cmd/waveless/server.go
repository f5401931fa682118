package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/waveless-run/waveless/internal/config"
	"github.com/waveless-run/waveless/internal/delivery/http/pipeline"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/internal/middleware"
	"github.com/waveless-run/waveless/internal/usecase"
)

const defaultRequestTimeout = 30 * time.Second

// buildProject runs the build pipeline (C4) against a project
// directory's conventional layout: waveless.toml, endpoints/, and a
// endpoints/_discovered sidecar directory for schema-discovery output.
func buildProject(ctx context.Context, projectDir string, flags config.Flags) (domain.Build, error) {
	u := usecase.NewBuildUsecase(logger)
	return u.Run(ctx, usecase.BuildOptions{
		ProjectFile:           filepath.Join(projectDir, "waveless.toml"),
		EndpointsDir:          filepath.Join(projectDir, "endpoints"),
		SidecarDir:            endpointsSidecarDir(projectDir),
		SkipEndpointDiscovery: flags.SkipEndpointDiscovery,
	})
}

// serve mounts rc behind the fixed outer middleware order and blocks
// until the process receives SIGINT/SIGTERM, then drains in-flight
// requests before returning.
func serve(rc *usecase.RuntimeContext, addr string, logger *zap.Logger) error {
	cache := middleware.NewResponseCache(0)
	handler := pipeline.New(rc, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", middleware.Outer(cache, defaultRequestTimeout, handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go middleware.RunRateLimiterGC(ctx, logger)
	go rc.RunSessionExpirySweep(ctx, logger)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// resolveAddr applies spec.md §6's override precedence: a positional
// CLI argument beats --addr, which beats the project file's listen_addr.
func resolveAddr(arg string, flagAddr string, fileAddr *string) string {
	if arg != "" {
		return arg
	}
	if flagAddr != "" {
		return flagAddr
	}
	if fileAddr != nil && *fileAddr != "" {
		return *fileAddr
	}
	return ":8080"
}

func endpointsSidecarDir(projectDir string) string {
	return filepath.Join(projectDir, "endpoints", "_discovered")
}
