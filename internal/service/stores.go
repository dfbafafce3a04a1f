package service

import (
	"context"

	"github.com/liliang-cn/billchat/internal/domain"
	"github.com/liliang-cn/billchat/internal/stream"
)

// BillStore is the read side of bill persistence.
// Get returns nil, nil when the bill does not exist.
type BillStore interface {
	Get(ctx context.Context, id string) (*domain.Bill, error)
	List(ctx context.Context, page, limit int) ([]*domain.Bill, int, error)
}

// ChatHistoryStore persists chat exchanges. ListByBill returns them oldest first.
type ChatHistoryStore interface {
	Create(ctx context.Context, billID, message, response string) (*domain.ChatExchange, error)
	ListByBill(ctx context.Context, billID string) ([]*domain.ChatExchange, error)
}

// BillCatalog is the full bill store used by maintenance commands.
type BillCatalog interface {
	BillStore
	Create(ctx context.Context, bill *domain.Bill) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// ChatArchive is the full chat history store used by maintenance commands.
type ChatArchive interface {
	ChatHistoryStore
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// ProducerSelector picks the completion producer for a message.
type ProducerSelector interface {
	Select(message string) stream.Producer
}
