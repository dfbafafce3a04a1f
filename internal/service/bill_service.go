package service

import (
	"context"
	"math"

	"github.com/liliang-cn/billchat/internal/domain"
)

// Pagination defaults for bill listings
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// BillService handles bill listing and lookup
type BillService struct {
	bills BillStore
}

// NewBillService creates a new bill service
func NewBillService(bills BillStore) *BillService {
	return &BillService{bills: bills}
}

// List returns one page of bills. Out-of-range page and limit values are clamped.
func (s *BillService) List(ctx context.Context, page, limit int) (*domain.BillListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// Keeps the store's (page-1)*limit offset from overflowing.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	bills, total, err := s.bills.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	if bills == nil {
		bills = []*domain.Bill{}
	}

	return &domain.BillListResponse{
		Bills:      bills,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

// Get returns a bill or domain.ErrNotFound
func (s *BillService) Get(ctx context.Context, id string) (*domain.Bill, error) {
	bill, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}
	return bill, nil
}
