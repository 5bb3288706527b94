package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/servicefix/dispatch-bot/internal/config"
	apperrors "github.com/servicefix/dispatch-bot/pkg/util"
)

const (
	// writeAttempts and writeRetryDelay bound the retry loop for writes
	// that fail with lock contention. Any other failure propagates
	// immediately.
	writeAttempts   = 5
	writeRetryDelay = 100 * time.Millisecond

	// lockWait is how long a connection waits for a lock before the
	// storage engine reports BUSY.
	lockWait = 30 * time.Second
)

// ScanFunc receives one result row. The statement is only valid for the
// duration of the call.
type ScanFunc func(stmt *sqlite.Stmt) error

// Store is the data-access layer over a sqlite connection pool. Every
// operation borrows its own connection, so concurrent callers never share
// a session; correctness under contention relies on the WAL journal, the
// engine's lock wait, and the bounded write retry. The Store holds no
// in-process locks.
//
// Retried writes must be idempotent to repeat. All statements issued by
// the repositories are keyed single-row INSERT/UPDATE, which satisfy that.
type Store struct {
	pool   *sqlitex.Pool
	logger *zap.Logger
	path   string
}

// Open creates the connection pool, applies the per-connection pragmas,
// and bootstraps the schema.
func Open(cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Path, err)
	}

	store := &Store{pool: pool, logger: logger, path: cfg.Path}
	if err := store.migrate(context.Background()); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Info("sqlite store opened",
		zap.String("path", cfg.Path),
		zap.Int("pool_size", poolSize))
	return store, nil
}

// prepareConnection runs once per pooled connection. WAL lets readers and
// writers coexist; busy_timeout makes lock acquisition wait up to 30s
// before surfacing BUSY.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", lockWait.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("store: closing %s: %w", s.path, err)
	}
	return nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
}

// Write executes an INSERT or UPDATE and returns the last insert rowid
// (meaningful for INSERTs only). Lock contention is retried up to the
// fixed budget with a short delay; exhausting the budget surfaces a
// contention error. Every other failure propagates on the first attempt.
func (s *Store) Write(ctx context.Context, stmt string, args ...any) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, writeRetryDelay); err != nil {
				return 0, err
			}
		}
		id, err := s.writeOnce(ctx, stmt, args)
		if err == nil {
			if attempt > 0 {
				s.logger.Debug("write succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return id, nil
		}
		if !isLockContention(err) {
			return 0, err
		}
		lastErr = err
		s.logger.Warn("write hit lock contention", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return 0, apperrors.NewContention("write failed after retries", lastErr)
}

func (s *Store) writeOnce(ctx context.Context, stmt string, args []any) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, stmt, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return conn.LastInsertRowID(), nil
}

// ReadOne runs a query expected to produce zero or one row. It reports
// whether a row was found.
func (s *Store) ReadOne(ctx context.Context, query string, scan ScanFunc, args ...any) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	found := false
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if found {
				return nil
			}
			found = true
			return scan(stmt)
		},
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// ReadAll runs a query and invokes scan for every row, in query order.
func (s *Store) ReadAll(ctx context.Context, query string, scan ScanFunc, args ...any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args:       args,
		ResultFunc: scan,
	})
}

// isLockContention reports whether the error is the storage engine's
// transient "another writer holds the lock" failure. Only these trigger
// the retry loop.
func isLockContention(err error) bool {
	code := sqlite.ErrCode(err)
	return code == sqlite.ResultBusy || code == sqlite.ResultLocked ||
		code.ToPrimary() == sqlite.ResultBusy || code.ToPrimary() == sqlite.ResultLocked
}

// sleepCtx delays without ignoring cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
