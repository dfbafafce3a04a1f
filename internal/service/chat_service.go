package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/liliang-cn/billchat/internal/domain"
	"github.com/liliang-cn/billchat/internal/render"
	"github.com/liliang-cn/billchat/internal/stream"
	"go.uber.org/zap"
)

// ChatService answers questions about bills and keeps their history
type ChatService struct {
	bills    BillStore
	history  ChatHistoryStore
	selector ProducerSelector
	relay    *stream.Relay
	logger   *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	bills BillStore,
	history ChatHistoryStore,
	selector ProducerSelector,
	relay *stream.Relay,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		bills:    bills,
		history:  history,
		selector: selector,
		relay:    relay,
		logger:   logger,
	}
}

// PreparedChat is a validated chat request bound to its bill and producer.
type PreparedChat struct {
	Bill     *domain.Bill
	Prompt   stream.Prompt
	Producer stream.Producer
}

// Prepare validates req and resolves its bill. It returns
// domain.ErrInvalidRequest or domain.ErrNotFound before any output is produced.
func (s *ChatService) Prepare(ctx context.Context, req *domain.ChatRequest) (*PreparedChat, error) {
	billID := strings.TrimSpace(req.BillID)
	message := strings.TrimSpace(req.Message)
	if billID == "" || message == "" {
		return nil, domain.ErrInvalidRequest
	}

	bill, err := s.bills.Get(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}

	prompt := stream.Prompt{
		Message:   message,
		BillID:    bill.ID,
		BillTitle: bill.Title,
		FileName:  bill.FileName(),
	}
	return &PreparedChat{
		Bill:     bill,
		Prompt:   prompt,
		Producer: s.selector.Select(message),
	}, nil
}

// Chat answers req in one response and stores the exchange
func (s *ChatService) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	prepared, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	state, err := stream.Collect(ctx, prepared.Producer, prepared.Prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("chat completion failed",
			zap.String("producer", prepared.Producer.Name()),
			zap.String("bill_id", prepared.Bill.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	response := state.Response()
	exchange, err := s.history.Create(ctx, prepared.Bill.ID, prepared.Prompt.Message, response)
	if err != nil {
		return nil, fmt.Errorf("save exchange: %w", err)
	}

	return &domain.ChatResponse{
		ID:       exchange.ID,
		Message:  exchange.Message,
		Response: exchange.Response,
		Thinking: state.Thinking,
		Answer:   state.Answer,
	}, nil
}

// Stream relays the prepared chat to w and stores the exchange when the
// stream completes. Nothing is stored for failed or abandoned streams.
func (s *ChatService) Stream(ctx context.Context, w stream.EventWriter, prepared *PreparedChat) error {
	res, err := s.relay.Run(ctx, w, prepared.Producer, prepared.Prompt)
	if err != nil {
		return err
	}
	if !res.Completed {
		return nil
	}

	response := stream.Parse(res.Content).Response()
	// Persist even if the client disconnects right after the done event.
	if _, err := s.history.Create(context.WithoutCancel(ctx), prepared.Bill.ID, prepared.Prompt.Message, response); err != nil {
		s.logger.Error("failed to save streamed exchange", zap.String("bill_id", prepared.Bill.ID), zap.Error(err))
		return fmt.Errorf("save exchange: %w", err)
	}
	return nil
}

// History returns a bill's exchanges, oldest first. With renderHTML the
// thinking and answer parts are rendered from markdown.
func (s *ChatService) History(ctx context.Context, billID string, renderHTML bool) ([]*domain.HistoryEntry, error) {
	if strings.TrimSpace(billID) == "" {
		return nil, domain.ErrInvalidRequest
	}
	exchanges, err := s.history.ListByBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.HistoryEntry, 0, len(exchanges))
	for _, e := range exchanges {
		entry := &domain.HistoryEntry{ChatExchange: e}
		if renderHTML {
			parsed := stream.Parse(e.Response)
			if parsed.Thinking != nil {
				if entry.ThinkingHTML, err = render.Markdown(*parsed.Thinking); err != nil {
					return nil, err
				}
			}
			if parsed.Answer != nil {
				if entry.AnswerHTML, err = render.Markdown(*parsed.Answer); err != nil {
					return nil, err
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Save stores an exchange produced elsewhere, e.g. by a client that
// finished reading a stream.
func (s *ChatService) Save(ctx context.Context, req *domain.SaveChatRequest) (*domain.ChatExchange, error) {
	if strings.TrimSpace(req.BillID) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, domain.ErrInvalidRequest
	}
	bill, err := s.bills.Get(ctx, req.BillID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}
	return s.history.Create(ctx, bill.ID, strings.TrimSpace(req.Message), req.Response)
}
