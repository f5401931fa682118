package postgres

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// PoolManager is C7: one pgxpool.Pool per configured database, opened
// concurrently at build/run time and looked up by database id
// thereafter. Unset pool bounds default to GOMAXPROCS/2×GOMAXPROCS, the
// closest stdlib proxy for the source's available_parallelism() call.
type PoolManager struct {
	mu        sync.RWMutex
	pools     map[string]*pgxpool.Pool
	primaryID string
}

func NewPoolManager() *PoolManager {
	return &PoolManager{pools: make(map[string]*pgxpool.Pool)}
}

// Open dials every configured database concurrently, closing whatever
// it already opened if any dial fails, so a PoolManager is never left
// half-initialised.
func Open(ctx context.Context, databases []domain.DatabaseConfig, logger *zap.Logger) (*PoolManager, error) {
	pm := NewPoolManager()

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, db := range databases {
		db := db
		if db.Primary {
			pm.primaryID = db.ID
		}
		g.Go(func() error {
			pool, err := openOne(gctx, db)
			if err != nil {
				return fmt.Errorf("opening database %q: %w", db.ID, err)
			}
			mu.Lock()
			pm.pools[db.ID] = pool
			mu.Unlock()
			logger.Info("database pool opened", zap.String("database_id", db.ID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		pm.CloseAll()
		return nil, err
	}
	if pm.primaryID == "" {
		pm.CloseAll()
		return nil, corerr.Expected(500, "no primary database configured")
	}
	return pm, nil
}

func openOne(ctx context.Context, db domain.DatabaseConfig) (*pgxpool.Pool, error) {
	conn, ok := db.Conn.(domain.PostgresConnection)
	if !ok {
		return nil, fmt.Errorf("database %q has no postgres connection configured (kind %q)", db.ID, db.Conn.Kind())
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		conn.User, conn.Password, conn.Host, conn.Port, conn.Database, conn.SSLMode)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	parallelism := runtime.GOMAXPROCS(0)
	cfg.MinConns = int32(parallelism)
	cfg.MaxConns = int32(2 * parallelism)
	if db.PoolMin != nil {
		cfg.MinConns = int32(*db.PoolMin)
	}
	if db.PoolMax != nil {
		cfg.MaxConns = int32(*db.PoolMax)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Get resolves a database id to its connection, falling back to the
// primary when id is nil (spec.md §4.7: an endpoint with no
// TargetDatabase runs against the primary).
func (pm *PoolManager) Get(id *string) (*Conn, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	key := pm.primaryID
	if id != nil {
		key = *id
	}
	pool, ok := pm.pools[key]
	if !ok {
		return nil, false
	}
	return NewConn(pool), true
}

// Pool exposes the raw pool for callers (discovery, migration bootstrap)
// that need it directly instead of through domain.Connection.
func (pm *PoolManager) Pool(id *string) (*pgxpool.Pool, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	key := pm.primaryID
	if id != nil {
		key = *id
	}
	pool, ok := pm.pools[key]
	return pool, ok
}

func (pm *PoolManager) PrimaryID() string {
	return pm.primaryID
}

func (pm *PoolManager) CloseAll() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, pool := range pm.pools {
		pool.Close()
	}
	pm.pools = make(map[string]*pgxpool.Pool)
}
