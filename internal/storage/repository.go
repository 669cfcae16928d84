package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and database/sql driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// SQLRepository stores records in the ingresos and gastos tables of a
// SQLite or Postgres database.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the SQLite database at
// dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return openRepository(DialectSQLite, dbPath)
}

// NewPostgresRepository connects to databaseURL through pgx and migrates it.
func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	return openRepository(DialectPostgres, databaseURL)
}

func openRepository(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == DialectSQLite {
		// modernc serialises writers; one connection avoids SQLITE_BUSY under load.
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for Postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLRepository) List(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	table, err := Table(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(Columns(kind), ", "), table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	records := make([]core.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return records, nil
}

func (r *SQLRepository) Get(ctx context.Context, kind core.Kind, id string) (core.Record, error) {
	table, err := Table(kind)
	if err != nil {
		return core.Record{}, err
	}

	query := r.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(Columns(kind), ", "), table))
	rec, err := scanRecord(kind, r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

func (r *SQLRepository) Create(ctx context.Context, rec core.Record) (core.Record, error) {
	rec = Prepare(rec.Kind, rec)
	if err := r.insert(ctx, r.db, rec); err != nil {
		return core.Record{}, err
	}

	slog.DebugContext(ctx, "Record saved", "backend", r.dialect, "kind", rec.Kind, "id", rec.ID)
	return rec, nil
}

// CreateMany inserts recs in a single transaction: all or none are stored.
func (r *SQLRepository) CreateMany(ctx context.Context, kind core.Kind, recs []core.Record) ([]core.Record, error) {
	if _, err := Table(kind); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := make([]core.Record, 0, len(recs))
	for _, rec := range recs {
		rec = Prepare(kind, rec)
		if err := r.insert(ctx, tx, rec); err != nil {
			return nil, err
		}
		created = append(created, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Records imported", "backend", r.dialect, "kind", kind, "count", len(created))
	return created, nil
}

func (r *SQLRepository) insert(ctx context.Context, ex execer, rec core.Record) error {
	table, err := Table(rec.Kind)
	if err != nil {
		return err
	}

	cols := Columns(rec.Kind)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := r.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders))

	if _, err := ex.ExecContext(ctx, query, values(rec, cols)...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, rec core.Record) (core.Record, error) {
	table, err := Table(rec.Kind)
	if err != nil {
		return core.Record{}, err
	}
	rec = rec.Normalize()

	cols := Columns(rec.Kind)[1:]
	assignments := make([]string, len(cols))
	for i, c := range cols {
		assignments[i] = c + " = ?"
	}
	query := r.rebind(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(assignments, ", ")))

	args := append(values(rec, cols), rec.ID)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s %s: %w", rec.Kind, rec.ID, err)
	}
	if err := expectRow(res); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (r *SQLRepository) Delete(ctx context.Context, kind core.Kind, id string) error {
	table, err := Table(kind)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, r.rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func values(rec core.Record, cols []string) []any {
	row := Row(rec)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	return args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(kind core.Kind, s scanner) (core.Record, error) {
	rec := core.Record{Kind: kind}
	var monto sql.NullString

	var err error
	if kind == core.Expense {
		err = s.Scan(&rec.ID, &rec.Date, &monto, &rec.Platform, &rec.Concept, &rec.Type, &rec.Category)
	} else {
		err = s.Scan(&rec.ID, &rec.Date, &monto, &rec.Platform, &rec.Product)
	}
	if err != nil {
		return core.Record{}, err
	}

	if monto.Valid {
		d, err := decimal.NewFromString(monto.String)
		if err != nil {
			// Keep the row; aggregation skips records without an amount.
			slog.Warn("Stored amount does not parse", "kind", kind, "id", rec.ID, "monto", monto.String)
		} else {
			rec.Amount = core.NullAmount(d)
		}
	}
	return rec, nil
}
