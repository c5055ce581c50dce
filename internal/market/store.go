package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"twoziq/internal/config"
	apperrors "twoziq/internal/errors"
)

// Store is the postgres-backed price history provider. Prices arrive via the
// backfill loader; the engine itself never writes during request handling.
type Store struct {
	db *sql.DB
}

// NewStore opens the price-store database and verifies the connection.
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeStoreConnection, "failed to open price store")
	}

	maxOpen := cfg.MaxOpen
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.WrapError(err, apperrors.ErrCodeStoreConnection, "failed to connect to price store")
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS prices (
    ticker TEXT NOT NULL,
    date   DATE NOT NULL,
    close  DOUBLE PRECISION NOT NULL CHECK (close > 0),
    PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS quotes (
    ticker     TEXT PRIMARY KEY,
    market_cap DOUBLE PRECISION NOT NULL,
    pe         DOUBLE PRECISION NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "failed to ensure price store schema")
	}
	return nil
}

// History implements Provider.
func (s *Store) History(ctx context.Context, ticker string, start, end time.Time) (*PriceSeries, error) {
	query := `SELECT date, close FROM prices WHERE ticker = $1`
	args := []interface{}{ticker}
	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "price history query failed")
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "price history scan failed")
		}
		p.Date = p.Date.UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "price history iteration failed")
	}
	if len(points) == 0 {
		return nil, apperrors.NewUnresolvedTicker(ticker, nil)
	}
	return NewPriceSeries(ticker, points)
}

// Quote implements Provider.
func (s *Store) Quote(ctx context.Context, ticker string) (*Quote, error) {
	var q Quote
	err := s.db.QueryRowContext(ctx,
		`SELECT ticker, market_cap, pe FROM quotes WHERE ticker = $1`, ticker).
		Scan(&q.Ticker, &q.MarketCap, &q.PE)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewUnresolvedTicker(ticker, nil)
	}
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "quote query failed")
	}
	return &q, nil
}

// UpsertPrices writes a batch of price points for one ticker. Used by the
// backfill loader.
func (s *Store) UpsertPrices(ctx context.Context, ticker string, points []PricePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "failed to begin backfill transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO prices (ticker, date, close) VALUES ($1, $2, $3)
ON CONFLICT (ticker, date) DO UPDATE SET close = EXCLUDED.close`)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "failed to prepare backfill statement")
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, ticker, p.Date, p.Close); err != nil {
			return apperrors.WrapError(err, apperrors.ErrCodeStoreQuery,
				fmt.Sprintf("failed to upsert %s %s", ticker, p.Date.Format(DateLayout)))
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "failed to commit backfill transaction")
	}
	return nil
}

// UpsertQuote writes the current valuation snapshot for one ticker.
func (s *Store) UpsertQuote(ctx context.Context, q *Quote) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO quotes (ticker, market_cap, pe, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (ticker) DO UPDATE SET market_cap = EXCLUDED.market_cap, pe = EXCLUDED.pe, updated_at = now()`,
		q.Ticker, q.MarketCap, q.PE)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeStoreQuery, "failed to upsert quote")
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
