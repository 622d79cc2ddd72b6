// Package postgres provides a PostgreSQL ledger store. Month partitions are
// rows of ledger_partitions; ledger rows live in ledger_rows and keep their
// insertion order through a serial key.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

//go:embed 001_create_ledger.sql
var migrationSQL string

// Config holds the PostgreSQL ledger configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// Ledger stores month partitions in PostgreSQL.
type Ledger struct {
	pool     *pgxpool.Pool
	calendar ledger.Calendar
	locale   *locale.Locale
	logger   *slog.Logger
}

// New connects to the database and applies the schema.
func New(ctx context.Context, cfg Config, cal ledger.Calendar, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 4
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)

	l := &Ledger{
		pool:     pool,
		calendar: cal,
		locale:   cal.Locale,
		logger:   logger,
	}

	if err := l.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return l, nil
}

func (l *Ledger) runMigrations(ctx context.Context) error {
	l.logger.Debug("running database migrations")
	if _, err := l.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

// CreatePartition provisions a month partition. It is a no-op if the
// partition already exists.
func (l *Ledger) CreatePartition(ctx context.Context, name string) error {
	_, err := l.pool.Exec(ctx, `INSERT INTO ledger_partitions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("creating partition %q: %w", name, err)
	}
	l.logger.Info("created partition", "name", name)
	return nil
}

// Partition resolves the partition for the current month.
func (l *Ledger) Partition(ctx context.Context) (api.Partition, error) {
	name := l.calendar.PartitionName()

	var exists bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_partitions WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("looking up partition %q: %w", name, err))
	}
	if !exists {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("partition %q: %w", name, api.ErrPartitionNotFound))
	}

	return &partition{ledger: l, name: name}, nil
}

// Close closes the database connection pool.
func (l *Ledger) Close() {
	if l.pool != nil {
		l.pool.Close()
		l.logger.Info("closed PostgreSQL connection pool")
	}
}

type partition struct {
	ledger *Ledger
	name   string
}

func (p *partition) Name() string {
	return p.name
}

func (p *partition) Append(ctx context.Context, tx api.Transaction) error {
	_, err := p.ledger.pool.Exec(ctx, `
		INSERT INTO ledger_rows (partition, tx_id, tx_date, description, amount, flow, category)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	`,
		p.name,
		tx.ID,
		tx.Date,
		tx.Description,
		tx.Amount.String(),
		string(tx.Flow),
		p.ledger.locale.CategoryLabel(tx.Category),
	)
	if err != nil {
		return api.WrapStore(api.OpAdd, fmt.Errorf("inserting row into %q: %w", p.name, err))
	}
	return nil
}

const selectColumns = `id, tx_id, tx_date, description, amount::text, flow, category`

func (p *partition) FindByIDs(ctx context.Context, ids []string) (map[string]api.RowRef, error) {
	rows, err := p.ledger.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM ledger_rows
		WHERE partition = $1 AND tx_id = ANY($2)
		ORDER BY id
	`, p.name, ids)
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("querying rows of %q: %w", p.name, err))
	}
	defer rows.Close()

	found := make(map[string]api.RowRef, len(ids))
	for rows.Next() {
		ref, err := p.scan(rows)
		if err != nil {
			return nil, api.WrapStore(api.OpLoad, err)
		}
		if _, seen := found[ref.Record.ID]; seen {
			continue
		}
		found[ref.Record.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("reading rows of %q: %w", p.name, err))
	}
	return found, nil
}

func (p *partition) Blank(ctx context.Context, ref api.RowRef) error {
	tag, err := p.ledger.pool.Exec(ctx, `
		UPDATE ledger_rows
		SET tx_id = '', tx_date = '', description = '', amount = NULL, flow = '', category = '', updated_at = NOW()
		WHERE id = $1 AND partition = $2
	`, ref.Row, p.name)
	if err != nil {
		return api.WrapStore(api.OpDelete, fmt.Errorf("blanking row %d of %q: %w", ref.Row, p.name, err))
	}
	if tag.RowsAffected() == 0 {
		return api.WrapStore(api.OpDelete, fmt.Errorf("row %d of %q no longer exists", ref.Row, p.name))
	}
	return nil
}

func (p *partition) Merge(ctx context.Context, ref api.RowRef, patch api.PartialTransaction) (api.Transaction, error) {
	merged := patch.Apply(ref.Record)

	row := p.ledger.pool.QueryRow(ctx, `
		UPDATE ledger_rows
		SET tx_date = $3, description = $4, amount = $5::numeric, flow = $6, category = $7, updated_at = NOW()
		WHERE id = $1 AND partition = $2
		RETURNING `+selectColumns,
		ref.Row,
		p.name,
		merged.Date,
		merged.Description,
		merged.Amount.String(),
		string(merged.Flow),
		p.ledger.locale.CategoryLabel(merged.Category),
	)
	out, err := p.scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.Transaction{}, api.WrapStore(api.OpEdit, fmt.Errorf("row %d of %q no longer exists", ref.Row, p.name))
	}
	if err != nil {
		return api.Transaction{}, api.WrapStore(api.OpEdit, fmt.Errorf("updating row %d of %q: %w", ref.Row, p.name, err))
	}
	return out.Record, nil
}

func (p *partition) scan(row pgx.Row) (api.RowRef, error) {
	var (
		id       int64
		rec      api.Transaction
		amount   *string
		flow     string
		category string
	)
	if err := row.Scan(&id, &rec.ID, &rec.Date, &rec.Description, &amount, &flow, &category); err != nil {
		return api.RowRef{}, fmt.Errorf("scanning row: %w", err)
	}
	if amount != nil {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return api.RowRef{}, fmt.Errorf("parsing amount %q: %w", *amount, err)
		}
		rec.Amount = d
	}
	rec.Flow = api.Flow(flow)
	rec.Category = p.ledger.locale.CategoryFromStore(category)

	return api.RowRef{Partition: p.name, Row: int(id), Record: rec}, nil
}
