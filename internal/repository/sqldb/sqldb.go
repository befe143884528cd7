// Package sqldb implements the repository interfaces on database/sql, using
// sqlx for struct scanning and placeholder rebinding.
//
// One implementation serves both stores the application runs on:
//   - SQLite (modernc.org/sqlite, pure Go) for local development and tests
//   - PostgreSQL (pgx stdlib driver) everywhere else
//
// Queries are written once with ? placeholders and rebound to $N for
// PostgreSQL. Inserts use RETURNING, which both engines support.
//
// Schema changes live in embedded goose migrations, one directory per dialect.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/sakif/storefront/internal/repository"
)

// Dialect selects the SQL engine.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) bindType() int {
	if d == Postgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

func (d Dialect) gooseDialect() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

//go:embed migrations
var migrations embed.FS

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Options configures New.
type Options struct {
	Dialect Dialect
	// DSN is a file path (or ":memory:") for SQLite and a connection URI for
	// PostgreSQL.
	DSN string
}

// DB is the pool-backed Store. Methods called on DB directly run outside any
// transaction; WithinTx hands out a Store bound to a single transaction.
type DB struct {
	*queries
	conn    *sqlx.DB
	dialect Dialect
}

var _ repository.TxStore = (*DB)(nil)

// New opens the database, applies engine settings and runs migrations.
func New(ctx context.Context, opts Options) (*DB, error) {
	switch opts.Dialect {
	case SQLite, Postgres:
	default:
		return nil, fmt.Errorf("sqldb: unknown dialect %q", opts.Dialect)
	}
	if opts.DSN == "" {
		return nil, errors.New("sqldb: empty DSN")
	}

	conn, err := sqlx.Open(opts.Dialect.driverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqldb: opening database: %w", err)
	}

	if opts.Dialect == SQLite {
		// SQLite allows a single writer. One connection serialises writes
		// instead of surfacing SQLITE_BUSY, and keeps ":memory:" databases
		// from splitting into one database per pooled connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqldb: pinging database: %w", err)
	}

	if opts.Dialect == SQLite {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sqldb: %s: %w", pragma, err)
			}
		}
	}

	db := NewWithConn(conn.DB, opts.Dialect)
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqldb: running migrations: %w", err)
	}

	return db, nil
}

// NewWithConn wraps an already-open connection without touching the schema.
func NewWithConn(conn *sql.DB, dialect Dialect) *DB {
	x := sqlx.NewDb(conn, dialect.driverName())
	return &DB{
		queries: &queries{ext: x, bind: dialect.bindType()},
		conn:    x,
		dialect: dialect,
	}
}

// Dialect reports which engine the DB talks to.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(db.dialect.gooseDialect()); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.conn.DB, "migrations/"+string(db.dialect))
}

// WithinTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back when fn returns an error or panics (the panic is re-raised).
func (db *DB) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("sqldb: rolling back: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("sqldb: committing transaction: %w", cErr)
		}
	}()

	return fn(&queries{ext: tx, bind: db.queries.bind})
}

// queries implements repository.Store on either the pool or a transaction.
type queries struct {
	ext  sqlx.ExtContext
	bind int
}

var _ repository.Store = (*queries)(nil)

func (q *queries) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.ext, dest, sqlx.Rebind(q.bind, query), args...)
}

func (q *queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, sqlx.Rebind(q.bind, query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sqlx.Row {
	return q.ext.QueryRowxContext(ctx, sqlx.Rebind(q.bind, query), args...)
}

// execOne runs a write that must touch exactly one row; zero rows yields
// notFound.
func (q *queries) execOne(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := q.ext.ExecContext(ctx, sqlx.Rebind(q.bind, query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
