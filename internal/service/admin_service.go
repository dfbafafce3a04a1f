package service

import (
	"context"
	"fmt"

	"github.com/liliang-cn/billchat/internal/domain"
)

// AdminService handles maintenance operations run from the command line
type AdminService struct {
	bills BillCatalog
	chats ChatArchive
}

// NewAdminService creates a new admin service
func NewAdminService(bills BillCatalog, chats ChatArchive) *AdminService {
	return &AdminService{bills: bills, chats: chats}
}

// GetStats counts stored bills and chat exchanges
func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	bills, err := s.bills.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count bills: %w", err)
	}
	chats, err := s.chats.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chats: %w", err)
	}
	return &domain.Stats{TotalBills: bills, TotalChats: chats}, nil
}

// ListBills returns every stored bill, newest publication first.
func (s *AdminService) ListBills(ctx context.Context) ([]*domain.Bill, error) {
	total, err := s.bills.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []*domain.Bill{}, nil
	}
	bills, _, err := s.bills.List(ctx, 1, total)
	return bills, err
}

// Reset deletes all chat history and then all bills. It returns the
// number of rows removed from each.
func (s *AdminService) Reset(ctx context.Context) (chats, bills int64, err error) {
	// History goes first; the bolt backend has no foreign key to cascade from.
	if chats, err = s.chats.DeleteAll(ctx); err != nil {
		return 0, 0, fmt.Errorf("delete chats: %w", err)
	}
	if bills, err = s.bills.DeleteAll(ctx); err != nil {
		return chats, 0, fmt.Errorf("delete bills: %w", err)
	}
	return chats, bills, nil
}
