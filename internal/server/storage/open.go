package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/logging"
)

// Options configure the startup probe and the relational pool.
type Options struct {
	DSN          string
	PoolSize     int
	ProbeTimeout time.Duration
	QueryTimeout time.Duration
}

// openDB is a seam for tests; production opens a pgx-backed pool.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Open selects the backend for the lifetime of the process.
//
// It probes the relational engine by acquiring and releasing one pooled
// connection. On success the schema is ensured and a PostgresStore is
// returned; a schema failure at that point is returned as an error and
// must stop the process. Any probe failure is not an error: it is logged
// as a warning and a fresh MemoryStore is returned instead. The decision
// is one-way; nothing switches back later.
func Open(ctx context.Context, opts Options, logger logging.Logger) (Store, error) {
	log := logger.With("module", "storage")

	db, err := probe(ctx, opts)
	if err != nil {
		log.Warn(ctx, "relational backend unavailable, falling back to in-memory store", "error", err)
		mem := NewMemoryStore(log)
		if err := mem.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Warn(ctx, "in-memory store active: data will be lost when the server restarts")
		return mem, nil
	}

	log.Info(ctx, "relational backend connected", "pool_size", opts.PoolSize)

	pg := NewPostgresStore(db, opts.QueryTimeout, log)
	if err := pg.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema creation failed: %w", err)
	}

	log.Info(ctx, "schema ready")
	return pg, nil
}

func probe(ctx context.Context, opts Options) (*sql.DB, error) {
	db, err := openDB(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if opts.PoolSize > 0 {
		db.SetMaxOpenConns(opts.PoolSize)
		db.SetMaxIdleConns(opts.PoolSize)
	}

	probeCtx := ctx
	if opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, opts.ProbeTimeout)
		defer cancel()
	}

	conn, err := db.Conn(probeCtx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if err := conn.PingContext(probeCtx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := conn.Close(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("release connection: %w", err)
	}

	return db, nil
}
