// Package database persists emitted signals to PostgreSQL so history
// survives restarts and can feed external reporting.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/quantfx/signalengine/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			emitted_at BIGINT NOT NULL,
			pair TEXT NOT NULL,
			action TEXT NOT NULL,
			confidence TEXT NOT NULL,
			grade TEXT NOT NULL,
			entry DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit_1 DOUBLE PRECISION NOT NULL,
			take_profit_2 DOUBLE PRECISION NOT NULL,
			risk_reward DOUBLE PRECISION NOT NULL,
			size DOUBLE PRECISION NOT NULL,
			risk_amount DOUBLE PRECISION NOT NULL,
			confluence_score DOUBLE PRECISION NOT NULL,
			confluence_factors JSONB NOT NULL,
			macro_bias TEXT,
			atr DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL,
			filled_at BIGINT,
			exit_price DOUBLE PRECISION,
			pnl DOUBLE PRECISION
		)
	`)
	return err
}

// SaveSignal inserts or updates a signal. Lifecycle transitions reuse the
// same call, so the upsert refreshes the mutable columns.
func (db *DB) SaveSignal(sig models.TradingSignal) error {
	factors, err := json.Marshal(sig.ConfluenceFactors)
	if err != nil {
		return fmt.Errorf("marshaling factors: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO signals (
			id, emitted_at, pair, action, confidence, grade,
			entry, stop_loss, take_profit_1, take_profit_2,
			risk_reward, size, risk_amount, confluence_score,
			confluence_factors, macro_bias, atr, reason,
			status, filled_at, exit_price, pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			filled_at = EXCLUDED.filled_at,
			exit_price = EXCLUDED.exit_price,
			pnl = EXCLUDED.pnl
	`,
		sig.ID, sig.Timestamp, sig.Pair, sig.Action, sig.Confidence, sig.Grade,
		sig.Entry, sig.StopLoss, sig.TakeProfit1, sig.TakeProfit2,
		sig.RiskReward, sig.Size, sig.RiskAmount, sig.ConfluenceScore,
		factors, nullString(string(sig.MacroBias)), sig.ATR, sig.Reason,
		sig.Status, sig.FilledAt, sig.ExitPrice, sig.PnL)
	return err
}

// LoadSignals returns the most recent signals, newest first.
func (db *DB) LoadSignals(limit int) ([]models.TradingSignal, error) {
	rows, err := db.Query(`
		SELECT
			id, emitted_at, pair, action, confidence, grade,
			entry, stop_loss, take_profit_1, take_profit_2,
			risk_reward, size, risk_amount, confluence_score,
			confluence_factors, macro_bias, atr, reason,
			status, filled_at, exit_price, pnl
		FROM signals
		ORDER BY emitted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.TradingSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// GetSignal retrieves one signal by ID, or nil if unknown.
func (db *DB) GetSignal(id string) (*models.TradingSignal, error) {
	row := db.QueryRow(`
		SELECT
			id, emitted_at, pair, action, confidence, grade,
			entry, stop_loss, take_profit_1, take_profit_2,
			risk_reward, size, risk_amount, confluence_score,
			confluence_factors, macro_bias, atr, reason,
			status, filled_at, exit_price, pnl
		FROM signals
		WHERE id = $1
	`, id)

	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sig, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (models.TradingSignal, error) {
	var (
		sig       models.TradingSignal
		factors   []byte
		macroBias sql.NullString
		filledAt  sql.NullInt64
		exitPrice sql.NullFloat64
		pnl       sql.NullFloat64
	)
	err := row.Scan(
		&sig.ID, &sig.Timestamp, &sig.Pair, &sig.Action, &sig.Confidence, &sig.Grade,
		&sig.Entry, &sig.StopLoss, &sig.TakeProfit1, &sig.TakeProfit2,
		&sig.RiskReward, &sig.Size, &sig.RiskAmount, &sig.ConfluenceScore,
		&factors, &macroBias, &sig.ATR, &sig.Reason,
		&sig.Status, &filledAt, &exitPrice, &pnl,
	)
	if err != nil {
		return models.TradingSignal{}, err
	}

	if err := json.Unmarshal(factors, &sig.ConfluenceFactors); err != nil {
		return models.TradingSignal{}, fmt.Errorf("unmarshaling factors: %w", err)
	}
	if macroBias.Valid {
		sig.MacroBias = models.Direction(macroBias.String)
	}
	if filledAt.Valid {
		v := filledAt.Int64
		sig.FilledAt = &v
	}
	if exitPrice.Valid {
		v := exitPrice.Float64
		sig.ExitPrice = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		sig.PnL = &v
	}
	return sig, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
