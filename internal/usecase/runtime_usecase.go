package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waveless-run/waveless/internal/artifact"
	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/delivery/http/router"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/internal/provider"
	"github.com/waveless-run/waveless/internal/repository/postgres"
	"github.com/waveless-run/waveless/internal/service"
)

const minSessionSweepInterval = 30 * time.Second

// RuntimeContext is C5: the process-wide singleton every request reads.
// A write lock over Build is reserved for a future reload capability
// (spec.md §4.5) that isn't wired up yet — nothing currently takes it
// for writing after Load returns.
type RuntimeContext struct {
	mu sync.RWMutex

	Build   domain.Build
	Router  *router.Router
	Pools   *postgres.PoolManager
	Auth    *provider.AuthMethods
	Session *provider.SessionBackends
	Role    *provider.RoleBackends

	logger *zap.Logger
}

// Load decodes an artifact, builds the router, opens every connection
// pool, registers the configured auth backends, and — when
// verifyChecksums is requested — re-discovers each database's schema
// and aborts on drift. This is the full C1→C5→(C3)→C7→C6 startup chain
// of spec.md §4.5.
func Load(ctx context.Context, artifactBytes []byte, logger *zap.Logger) (*RuntimeContext, error) {
	build, err := artifact.DecodeArtifact(artifactBytes)
	if err != nil {
		return nil, err
	}
	if err := build.Validate(); err != nil {
		return nil, corerr.Wrap(500, "decoded artifact failed validation", err)
	}
	return LoadBuild(ctx, build, logger)
}

// LoadBuild runs the same startup chain as Load but starts from an
// already-resolved Build, letting `run` go straight from the build
// pipeline's output into a live runtime without an artifact round trip.
func LoadBuild(ctx context.Context, build domain.Build, logger *zap.Logger) (*RuntimeContext, error) {
	pools, err := postgres.Open(ctx, build.General.Databases, logger)
	if err != nil {
		return nil, corerr.Wrap(500, "opening connection pools", err)
	}

	if build.ExecutorSettings.VerifyChecksums {
		if err := verifyChecksums(ctx, build, pools); err != nil {
			pools.CloseAll()
			return nil, err
		}
	}

	rc := &RuntimeContext{
		Build:   build,
		Router:  router.Build(build.ExecutorSettings.APIPrefix, build.Endpoints.All(), build.General.Auth != nil),
		Pools:   pools,
		Auth:    provider.NewAuthMethods(),
		Session: provider.NewSessionBackends(),
		Role:    provider.NewRoleBackends(),
		logger:  logger,
	}

	if build.General.Auth != nil {
		if err := rc.registerAuth(build.General.Auth); err != nil {
			pools.CloseAll()
			return nil, err
		}
	}

	return rc, nil
}

func verifyChecksums(ctx context.Context, build domain.Build, pools *postgres.PoolManager) error {
	for _, want := range build.DatabaseChecksums {
		db, ok := build.General.Database(want.DatabaseID)
		if !ok {
			continue
		}
		discoveryCfg, ok := db.Discovery.(domain.PostgresDiscovery)
		if !ok {
			continue
		}
		conn, ok := pools.Get(&want.DatabaseID)
		if !ok {
			return corerr.Expectedf(500, "no open pool for database %q during checksum verification", want.DatabaseID)
		}
		schema, err := (postgres.Discovery{}).Discover(ctx, want.DatabaseID, conn, discoveryCfg.SkipTables)
		if err != nil {
			return corerr.Wrap(500, "re-discovering schema for checksum verification", err)
		}
		if schema.Checksum != want.Checksum {
			return corerr.ErrSchemaDrift
		}
	}
	return nil
}

func (rc *RuntimeContext) registerAuth(cfg *domain.AuthConfig) error {
	switch m := cfg.Method.(type) {
	case domain.SQLAuthMethod:
		if err := rc.Auth.Register(postgres.NewAuthMethod(m)); err != nil {
			return err
		}
	case domain.ExternalModuleAuthMethod:
		// Reserved extension point; nothing to register in the core.
	}

	switch s := cfg.Session.(type) {
	case domain.SQLSessionBackend:
		rc.Session.Set(postgres.NewSessionBackend(s))
	case domain.JWTSessionBackend:
		rc.Session.Set(service.NewJWTSessionBackend(s))
	}

	switch r := cfg.Role.(type) {
	case domain.SQLRoleBackend:
		rc.Role.Set(postgres.NewRoleBackend(r))
	}

	return nil
}

// Conn resolves an endpoint's target database to a live connection,
// falling back to the primary when the endpoint doesn't name one.
func (rc *RuntimeContext) Conn(databaseID *string) (domain.Connection, bool) {
	return rc.Pools.Get(databaseID)
}

func (rc *RuntimeContext) Close() {
	rc.Pools.CloseAll()
}

// RunSessionExpirySweep blocks, periodically calling the configured
// session backend's RemoveExpired until ctx is cancelled. The source's
// watchdog task (see DESIGN.md) does this on a schedule derived from
// the backend's own max age; this mirrors that instead of leaving
// RemoveExpired dead code only reachable through manual invocation.
func (rc *RuntimeContext) RunSessionExpirySweep(ctx context.Context, logger *zap.Logger) {
	session, ok := rc.Session.Get()
	if !ok {
		return
	}
	auth := rc.Build.General.Auth
	if auth == nil {
		return
	}
	conn, ok := rc.Conn(auth.Session.DatabaseID())
	if !ok {
		return
	}

	interval := time.Duration(session.MaxAge()/4) * time.Second
	if interval < minSessionSweepInterval {
		interval = minSessionSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := session.RemoveExpired(ctx, conn); err != nil {
				logger.Warn("session expiry sweep failed", zap.Error(err))
			}
		}
	}
}
