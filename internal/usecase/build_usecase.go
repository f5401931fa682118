// Package usecase implements the two top-level pipelines spec.md §2
// names C4 (build) and C5 (runtime context): turning a project
// directory into a Build/artifact, and turning an artifact back into a
// live, connection-pooled runtime.
package usecase

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/waveless-run/waveless/internal/artifact"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/internal/project"
	"github.com/waveless-run/waveless/internal/repository/postgres"
)

// BuildOptions configures one run of the build pipeline.
type BuildOptions struct {
	ProjectFile        string // path to the main project TOML file
	EndpointsDir       string // directory of hand-authored endpoint files
	SidecarDir         string // directory discovery dumps its generated endpoints under
	SkipEndpointDiscovery bool
}

// BuildUsecase is C4: merge user-authored endpoints with discovered
// endpoints, produce a Build, optionally emit artifact bytes.
type BuildUsecase struct {
	logger *zap.Logger
}

func NewBuildUsecase(logger *zap.Logger) *BuildUsecase {
	return &BuildUsecase{logger: logger}
}

// Run executes the full build pipeline and returns the resolved Build.
func (u *BuildUsecase) Run(ctx context.Context, opts BuildOptions) (domain.Build, error) {
	general, executorSettings, err := project.LoadGeneral(opts.ProjectFile)
	if err != nil {
		return domain.Build{}, err
	}

	endpoints, err := project.LoadEndpoints(opts.EndpointsDir)
	if err != nil {
		return domain.Build{}, err
	}

	var checksums []domain.DatabaseChecksum
	if !opts.SkipEndpointDiscovery {
		for _, db := range general.Databases {
			if db.Discovery == nil {
				continue
			}
			discovered, checksum, err := u.discover(ctx, db)
			if err != nil {
				return domain.Build{}, fmt.Errorf("discovering database %q: %w", db.ID, err)
			}
			if err := project.DumpDiscovered(opts.SidecarDir, db.ID, discovered); err != nil {
				return domain.Build{}, err
			}
			endpoints.Merge(discovered, u.logger)
			checksums = append(checksums, domain.DatabaseChecksum{DatabaseID: db.ID, Checksum: checksum})
		}
	}

	build := domain.Build{
		General:           general,
		ExecutorSettings:  executorSettings,
		Endpoints:         endpoints,
		DatabaseChecksums: checksums,
	}

	if err := build.Validate(); err != nil {
		return domain.Build{}, err
	}

	return build, nil
}

func (u *BuildUsecase) discover(ctx context.Context, db domain.DatabaseConfig) (*domain.Endpoints, [4]byte, error) {
	switch d := db.Discovery.(type) {
	case domain.PostgresDiscovery:
		conn, ok := db.Conn.(domain.PostgresConnection)
		if !ok {
			return nil, [4]byte{}, fmt.Errorf("postgres discovery requires a postgres connection")
		}
		pool, err := postgres.OpenSingle(ctx, conn)
		if err != nil {
			return nil, [4]byte{}, err
		}
		defer pool.Close()

		schema, err := (postgres.Discovery{}).Discover(ctx, db.ID, postgres.NewConn(pool), d.SkipTables)
		if err != nil {
			return nil, [4]byte{}, err
		}
		return schema.Endpoints, schema.Checksum, nil
	case domain.ExternalModuleDiscovery:
		return nil, [4]byte{}, fmt.Errorf("external_module discovery %q is not implemented by this runtime", d.Name)
	default:
		return nil, [4]byte{}, fmt.Errorf("unknown discovery config %T", db.Discovery)
	}
}

// EmitArtifact encodes build and writes it under targetDir with the
// filename format spec.md §4.4 fixes: {DDMMYYYY_HHMM}_{crc32(body)}.wv.
func EmitArtifact(build domain.Build, targetDir string) (string, error) {
	body := artifact.Encode(build)
	sum := crc32.ChecksumIEEE(body)

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("creating target directory: %w", err)
	}

	name := fmt.Sprintf("%s_%08x.wv", time.Now().Format("02012006_1504"), sum)
	path := filepath.Join(targetDir, name)

	fullBody := artifact.EncodeArtifact(build)
	if err := os.WriteFile(path, fullBody, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}
