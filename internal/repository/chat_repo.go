package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/billchat/internal/domain"
)

// ChatRepository handles chat history persistence in SQLite
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create stores a new chat exchange
func (r *ChatRepository) Create(ctx context.Context, billID, message, response string) (*domain.ChatExchange, error) {
	exchange := &domain.ChatExchange{
		ID:        uuid.New().String(),
		Message:   message,
		Response:  response,
		CreatedAt: time.Now().UTC(),
		BillID:    billID,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, bill_id, message, response, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, exchange.ID, exchange.BillID, exchange.Message, exchange.Response, exchange.CreatedAt)
	if err != nil {
		return nil, err
	}

	return exchange, nil
}

// ListByBill retrieves all exchanges for a bill, oldest first
func (r *ChatRepository) ListByBill(ctx context.Context, billID string) ([]*domain.ChatExchange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bill_id, message, response, created_at
		FROM chat_messages WHERE bill_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exchanges := []*domain.ChatExchange{}
	for rows.Next() {
		e := &domain.ChatExchange{}
		if err := rows.Scan(&e.ID, &e.BillID, &e.Message, &e.Response, &e.CreatedAt); err != nil {
			return nil, err
		}
		exchanges = append(exchanges, e)
	}

	return exchanges, rows.Err()
}

// Count returns the total number of stored exchanges
func (r *ChatRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&count)
	return count, err
}

// DeleteAll removes all chat history
func (r *ChatRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
