package blobstore

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type SQLiteConfig struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// SQLite stores blobs in a single table behind a connection pool.
type SQLite struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS blobs (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID;`

func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", cfg.Path, err)
	}
	logger.Debug("sqlite pool opened", "path", cfg.Path, "pool_size", poolSize)

	return &SQLite{pool: pool, logger: logger, path: cfg.Path}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("sqlite: schema: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, sqliteErr("get", key, err)
	}
	defer s.pool.Put(conn)

	var (
		out   []byte
		found bool
	)
	err = sqlitex.Execute(conn, `SELECT value FROM blobs WHERE key = ?`, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, out)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, sqliteErr("get", key, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return sqliteErr("put", key, err)
	}
	defer s.pool.Put(conn)

	if value == nil {
		value = []byte{}
	}
	err = sqlitex.Execute(conn, `INSERT OR IGNORE INTO blobs (key, value) VALUES (?, ?)`, &sqlitex.ExecOptions{
		Args: []any{key, value},
	})
	if err != nil {
		return sqliteErr("put", key, err)
	}
	return nil
}

func (s *SQLite) Has(ctx context.Context, key string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, sqliteErr("has", key, err)
	}
	defer s.pool.Put(conn)

	found := false
	err = sqlitex.Execute(conn, `SELECT 1 FROM blobs WHERE key = ?`, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(*sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	if err != nil {
		return false, sqliteErr("has", key, err)
	}
	return found, nil
}

func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite pool close error", "path", s.path, "error", err)
		return fmt.Errorf("sqlite: closing %s: %w", s.path, err)
	}
	s.logger.Debug("sqlite pool closed", "path", s.path)
	return nil
}

func sqliteErr(op, key string, err error) error {
	wrapped := fmt.Errorf("sqlite %s %q: %w", op, key, err)
	switch sqlite.ErrCode(err).ToPrimary() {
	case sqlite.ResultBusy, sqlite.ResultLocked:
		return Transient(wrapped)
	}
	return wrapped
}
