package repository

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/billchat/internal/domain"
)

// BillRepository handles bill persistence
type BillRepository struct {
	db *DB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *DB) *BillRepository {
	return &BillRepository{db: db}
}

// Create creates a new bill
func (r *BillRepository) Create(ctx context.Context, bill *domain.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	bill.CreatedAt = now
	bill.UpdatedAt = now
	bill.PublicationDate = bill.PublicationDate.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bills (id, title, publication_date, pdf_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, bill.ID, bill.Title, bill.PublicationDate, bill.PdfURL, bill.CreatedAt, bill.UpdatedAt)

	return err
}

// Get retrieves a bill by ID. It returns nil, nil when the bill does not exist.
func (r *BillRepository) Get(ctx context.Context, id string) (*domain.Bill, error) {
	bill := &domain.Bill{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, publication_date, pdf_url, created_at, updated_at
		FROM bills WHERE id = ?
	`, id).Scan(&bill.ID, &bill.Title, &bill.PublicationDate, &bill.PdfURL, &bill.CreatedAt, &bill.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// List returns one page of bills, newest publication first, and the total count.
func (r *BillRepository) List(ctx context.Context, page, limit int) ([]*domain.Bill, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	if limit > 0 && page-1 > math.MaxInt/limit {
		return []*domain.Bill{}, total, nil
	}
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, publication_date, pdf_url, created_at, updated_at
		FROM bills
		ORDER BY publication_date DESC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bills := []*domain.Bill{}
	for rows.Next() {
		bill := &domain.Bill{}
		if err := rows.Scan(&bill.ID, &bill.Title, &bill.PublicationDate, &bill.PdfURL,
			&bill.CreatedAt, &bill.UpdatedAt); err != nil {
			return nil, 0, err
		}
		bills = append(bills, bill)
	}

	return bills, total, rows.Err()
}

// Count returns the total number of bills
func (r *BillRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bills`).Scan(&count)
	return count, err
}

// DeleteAll removes every bill; their chat messages cascade.
func (r *BillRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
