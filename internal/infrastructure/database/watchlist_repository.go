package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/romanzzaa/binance-watch-bot/internal/domain"
	"github.com/shopspring/decimal"
)

const watchItemColumns = `id, chat_id, symbol, market_type, reference_price, price_threshold,
	   last_alert_price, last_alert_at, added_by, is_active, created_at, updated_at`

type WatchlistRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewWatchlistRepository(db *DB, logger *slog.Logger) *WatchlistRepository {
	return &WatchlistRepository{db: db, logger: logger}
}

func (r *WatchlistRepository) GetActive(ctx context.Context) ([]domain.WatchItem, error) {
	query := `
		SELECT ` + watchItemColumns + `
		FROM watchlists
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active watchlists: %w", err)
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *WatchlistRepository) GetByChat(ctx context.Context, chatID int64) ([]domain.WatchItem, error) {
	query := `
		SELECT ` + watchItemColumns + `
		FROM watchlists
		WHERE chat_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat watchlists: %w", err)
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// Upsert добавляет инструмент или, если (chat, symbol, market) уже наблюдается,
// перезаписывает базовую цену и порог (re-watch). Возвращает true при обновлении.
func (r *WatchlistRepository) Upsert(ctx context.Context, item *domain.WatchItem) (bool, error) {
	symbol := strings.ToUpper(item.Symbol)

	var existingID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM watchlists WHERE chat_id = $1 AND symbol = $2 AND market_type = $3`,
		item.ChatID, symbol, item.MarketType,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}

	if err == nil {
		// Re-watch: новая базовая цена, сброс watermark не делаем -
		// кулдаун продолжает действовать
		query := `
			UPDATE watchlists
			SET reference_price = $1, price_threshold = $2, added_by = $3,
				is_active = TRUE, updated_at = NOW()
			WHERE id = $4
		`
		if _, err := r.db.ExecContext(ctx, query,
			item.ReferencePrice, item.Threshold, item.AddedBy, existingID); err != nil {
			return false, fmt.Errorf("failed to update watchlist: %w", err)
		}
		item.ID = existingID
		return true, nil
	}

	query := `
		INSERT INTO watchlists (
			chat_id, symbol, market_type, reference_price, price_threshold,
			added_by, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		item.ChatID, symbol, item.MarketType, item.ReferencePrice,
		item.Threshold, item.AddedBy,
	).Scan(&item.ID)
	if err != nil {
		return false, fmt.Errorf("failed to create watchlist: %w", err)
	}
	return false, nil
}

func (r *WatchlistRepository) Remove(ctx context.Context, chatID int64, symbol string, mt domain.MarketType) (bool, error) {
	query := `DELETE FROM watchlists WHERE chat_id = $1 AND symbol = $2 AND market_type = $3`

	result, err := r.db.ExecContext(ctx, query, chatID, strings.ToUpper(symbol), mt)
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *WatchlistRepository) UpdateReferencePrice(ctx context.Context, chatID int64, symbol string, mt domain.MarketType, price decimal.Decimal) (bool, error) {
	query := `
		UPDATE watchlists
		SET reference_price = $1, updated_at = NOW()
		WHERE chat_id = $2 AND symbol = $3 AND market_type = $4
	`

	result, err := r.db.ExecContext(ctx, query, price, chatID, strings.ToUpper(symbol), mt)
	if err != nil {
		return false, fmt.Errorf("failed to update reference price: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *WatchlistRepository) MarkAlerted(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error {
	query := `
		UPDATE watchlists
		SET last_alert_price = $1, last_alert_at = $2, updated_at = NOW()
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, price, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark alerted: %w", err)
	}
	return nil
}

// Helpers

func (r *WatchlistRepository) scanRows(rows *sql.Rows) ([]domain.WatchItem, error) {
	var items []domain.WatchItem
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *WatchlistRepository) scanRow(rows *sql.Rows) (*domain.WatchItem, error) {
	item := &domain.WatchItem{}
	var lastAlertAt sql.NullTime

	err := rows.Scan(
		&item.ID, &item.ChatID, &item.Symbol, &item.MarketType,
		&item.ReferencePrice, &item.Threshold,
		&item.LastAlertPrice, &lastAlertAt,
		&item.AddedBy, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan row error: %w", err)
	}
	if lastAlertAt.Valid {
		t := lastAlertAt.Time
		item.LastAlertAt = &t
	}
	return item, nil
}
