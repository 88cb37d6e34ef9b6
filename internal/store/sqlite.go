package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	scanerrors "market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Confirmed signals
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		strategy TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry REAL NOT NULL,
		stop REAL NOT NULL,
		target REAL NOT NULL,
		confidence INTEGER NOT NULL,
		risk_reward REAL NOT NULL,
		factors TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals(symbol, created_at);

	-- Rejections and suppressions, for tuning threshold review
	CREATE TABLE IF NOT EXISTS rejections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		strategy TEXT NOT NULL,
		reason TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rejections_symbol_time ON rejections(symbol, created_at);

	-- Closed trades
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		strategy TEXT,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		last_price REAL NOT NULL,
		profit_pct REAL NOT NULL,
		peak_pct REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		opened_at DATETIME NOT NULL,
		closed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades(symbol, closed_at);

	-- Health guard pause/resume events
	CREATE TABLE IF NOT EXISTS health_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		paused INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		reason TEXT,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSignal persists a confirmed signal.
func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *models.ConfirmedSignal) error {
	factors := make([]string, 0, sig.Factors.Count())
	for _, f := range sig.Factors.Sorted() {
		factors = append(factors, string(f))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (symbol, timeframe, strategy, direction, entry, stop, target, confidence, risk_reward, factors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol, string(sig.Timeframe), sig.Strategy, string(sig.Direction),
		sig.Entry, sig.Stop, sig.Target, sig.Confidence, sig.RR,
		strings.Join(factors, ","), sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving signal: %w", err)
	}
	return nil
}

// SaveRejection persists a rejection or suppression outcome.
func (s *SQLiteStore) SaveRejection(ctx context.Context, symbol string, tf models.Timeframe, strategy string, rej *models.Rejection, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rejections (symbol, timeframe, strategy, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		symbol, string(tf), strategy, string(rej.Reason), rej.Detail, at,
	)
	if err != nil {
		return fmt.Errorf("saving rejection: %w", err)
	}
	return nil
}

// SaveClosedTrade persists a trade's final state.
func (s *SQLiteStore) SaveClosedTrade(ctx context.Context, trade *models.ActiveTrade) error {
	strategy := ""
	if trade.Signal != nil {
		strategy = trade.Signal.Strategy
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (symbol, timeframe, strategy, direction, entry_price, last_price, profit_pct, peak_pct, exit_reason, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Symbol, string(trade.Timeframe), strategy, string(trade.Direction),
		trade.EntryPrice, trade.LastPrice, trade.CurrentProfitPct, trade.PeakProfitPct,
		string(trade.ExitReason), trade.EntryTime, trade.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("saving closed trade: %w", err)
	}
	return nil
}

// SaveHealthEvent persists a pause or resume event.
func (s *SQLiteStore) SaveHealthEvent(ctx context.Context, symbol string, paused bool, failures int, reason string, at time.Time) error {
	pausedInt := 0
	if paused {
		pausedInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_events (symbol, paused, failures, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		symbol, pausedInt, failures, reason, at,
	)
	if err != nil {
		return fmt.Errorf("saving health event: %w", err)
	}
	return nil
}

// RecentSignals returns the symbol's confirmed signals newer than
// since, oldest first.
func (s *SQLiteStore) RecentSignals(ctx context.Context, symbol string, since time.Time) ([]SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, strategy, direction, entry, stop, target, confidence, risk_reward, factors, created_at
		FROM signals
		WHERE symbol = ? AND created_at > ?
		ORDER BY created_at ASC`,
		symbol, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying signals: %w", err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var (
			r         SignalRecord
			tf, dir   string
			factorCSV string
		)
		if err := rows.Scan(&r.Symbol, &tf, &r.Strategy, &dir, &r.Entry, &r.Stop, &r.Target, &r.Confidence, &r.RR, &factorCSV, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning signal row: %w", err)
		}
		r.Timeframe = models.Timeframe(tf)
		r.Direction = models.Direction(dir)
		if factorCSV != "" {
			r.Factors = strings.Split(factorCSV, ",")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return scanerrors.ErrStoreClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}
