// Package trades persists the trade ledger and exposes it to the
// analytics orchestrator.
package trades

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/tradepulse/internal/database"
	"github.com/aristath/tradepulse/internal/domain"
)

// tradesColumns is the list of columns for the trades table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match the scan helpers below.
const tradesColumns = `id, date, symbol, side, pnl, fees, playbook, emotion, r_multiple, rule_break, price, quantity, created_at`

const tradesSchema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		date INTEGER,
		symbol TEXT,
		side TEXT,
		pnl REAL NOT NULL,
		fees REAL NOT NULL DEFAULT 0,
		playbook TEXT,
		emotion TEXT,
		r_multiple REAL,
		rule_break INTEGER NOT NULL DEFAULT 0,
		price REAL,
		quantity REAL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date);
	CREATE INDEX IF NOT EXISTS idx_trades_playbook ON trades(playbook);
`

// Repository handles trade database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trade repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

// InitSchema creates the trades table if it does not exist.
func (r *Repository) InitSchema() error {
	if _, err := r.db.Exec(tradesSchema); err != nil {
		return fmt.Errorf("failed to initialize trades schema: %w", err)
	}
	return nil
}

// Create inserts a single trade and returns its assigned ID. Trades
// arriving without an ID get a generated one.
func (r *Repository) Create(trade domain.Trade) (string, error) {
	trade = withID(trade)
	if err := trade.Validate(); err != nil {
		return "", fmt.Errorf("failed to create trade: %w", err)
	}

	if _, err := r.db.Exec(insertQuery, insertArgs(trade)...); err != nil {
		return "", fmt.Errorf("failed to create trade: %w", err)
	}

	r.log.Info().
		Str("id", trade.ID).
		Str("symbol", trade.Symbol).
		Float64("pnl", trade.PnL).
		Msg("Trade created")

	return trade.ID, nil
}

func withID(trade domain.Trade) domain.Trade {
	if strings.TrimSpace(trade.ID) == "" {
		trade.ID = uuid.New().String()
	}
	return trade
}

const insertQuery = `
	INSERT INTO trades
	(id, date, symbol, side, pnl, fees, playbook, emotion, r_multiple, rule_break, price, quantity, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertArgs(trade domain.Trade) []interface{} {
	var date sql.NullInt64
	if trade.HasDate() {
		date = sql.NullInt64{Int64: trade.Date.Unix(), Valid: true}
	}
	return []interface{}{
		trade.ID,
		date,
		nullString(strings.ToUpper(strings.TrimSpace(trade.Symbol))),
		nullString(string(trade.Side)),
		trade.PnL,
		trade.Fees,
		nullString(trade.Playbook),
		nullString(trade.Emotion),
		nullFloat64Ptr(trade.RMultiple),
		boolToInt(trade.RuleBreak),
		nullFloat64(trade.Price),
		nullFloat64(trade.Quantity),
		time.Now().Unix(),
	}
}

// CreateBatch inserts trades atomically. Either every trade lands or
// none do. Returns the assigned IDs in input order.
func (r *Repository) CreateBatch(trades []domain.Trade) ([]string, error) {
	if len(trades) == 0 {
		return nil, nil
	}

	prepared := make([]domain.Trade, len(trades))
	for i, trade := range trades {
		prepared[i] = withID(trade)
		if err := prepared[i].Validate(); err != nil {
			return nil, fmt.Errorf("trade %d failed validation: %w", i, err)
		}
	}

	ids := make([]string, 0, len(prepared))
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, trade := range prepared {
			if _, err := stmt.Exec(insertArgs(trade)...); err != nil {
				return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
			}
			ids = append(ids, trade.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().Int("count", len(ids)).Msg("Trade batch imported")
	return ids, nil
}

// GetAll retrieves every trade ordered by date ascending. Trades
// without a date sort first.
func (r *Repository) GetAll() ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		ORDER BY date ASC, id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetByID retrieves a single trade, or nil when it does not exist.
func (r *Repository) GetByID(id string) (*domain.Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades WHERE id = ?"

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get trade: %w", err)
		}
		return nil, nil
	}

	trade, err := scanTrade(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trade: %w", err)
	}
	return &trade, nil
}

// Delete removes a trade. Deleting a missing trade is not an error.
func (r *Repository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM trades WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return nil
}

// DeleteAll removes every trade from the ledger.
func (r *Repository) DeleteAll() error {
	if _, err := r.db.Exec("DELETE FROM trades"); err != nil {
		return fmt.Errorf("failed to delete trades: %w", err)
	}
	r.log.Info().Msg("Trade ledger cleared")
	return nil
}

// Count returns the number of trades in the ledger.
func (r *Repository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func scanTrade(rows *sql.Rows) (domain.Trade, error) {
	var trade domain.Trade
	var date, createdAt sql.NullInt64
	var symbol, side, playbook, emotion sql.NullString
	var rMultiple, price, quantity sql.NullFloat64
	var ruleBreak int

	err := rows.Scan(
		&trade.ID,
		&date,
		&symbol,
		&side,
		&trade.PnL,
		&trade.Fees,
		&playbook,
		&emotion,
		&rMultiple,
		&ruleBreak,
		&price,
		&quantity,
		&createdAt,
	)
	if err != nil {
		return trade, err
	}

	if date.Valid {
		trade.Date = time.Unix(date.Int64, 0).UTC()
	}
	if symbol.Valid {
		trade.Symbol = symbol.String
	}
	if side.Valid {
		trade.Side = domain.Side(side.String)
	}
	if playbook.Valid {
		trade.Playbook = playbook.String
	}
	if emotion.Valid {
		trade.Emotion = emotion.String
	}
	if rMultiple.Valid {
		v := rMultiple.Float64
		trade.RMultiple = &v
	}
	trade.RuleBreak = ruleBreak != 0
	if price.Valid {
		trade.Price = price.Float64
	}
	if quantity.Valid {
		trade.Quantity = quantity.Float64
	}

	return trade, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
