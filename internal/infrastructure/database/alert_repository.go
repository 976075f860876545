package database

import (
	"context"
	"fmt"

	"github.com/romanzzaa/binance-watch-bot/internal/domain"
)

type AlertHistoryRepository struct {
	db *DB
}

func NewAlertHistoryRepository(db *DB) *AlertHistoryRepository {
	return &AlertHistoryRepository{db: db}
}

func (r *AlertHistoryRepository) Append(ctx context.Context, event *domain.AlertEvent) error {
	query := `
		INSERT INTO alert_history (
			watchlist_id, chat_id, symbol, market_type,
			old_price, new_price, change_percent, message, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.WatchItemID, event.ChatID, event.Symbol, event.MarketType,
		event.OldPrice, event.NewPrice, event.ChangePercent, event.Message, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append alert history: %w", err)
	}
	return nil
}

func (r *AlertHistoryRepository) RecentByChat(ctx context.Context, chatID int64, limit int) ([]domain.AlertEvent, error) {
	query := `
		SELECT watchlist_id, chat_id, symbol, market_type,
			   old_price, new_price, change_percent, message, sent_at
		FROM alert_history
		WHERE chat_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert history: %w", err)
	}
	defer rows.Close()

	var events []domain.AlertEvent
	for rows.Next() {
		var e domain.AlertEvent
		err := rows.Scan(
			&e.WatchItemID, &e.ChatID, &e.Symbol, &e.MarketType,
			&e.OldPrice, &e.NewPrice, &e.ChangePercent, &e.Message, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert history: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
