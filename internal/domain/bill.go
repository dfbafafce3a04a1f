package domain

import (
	"path"
	"time"
)

// Bill represents a published government bill
type Bill struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	PublicationDate time.Time `json:"publicationDate"`
	PdfURL          string    `json:"pdfUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FileName returns the base name of the bill's PDF.
func (b *Bill) FileName() string {
	if b.PdfURL == "" {
		return ""
	}
	return path.Base(b.PdfURL)
}

// Pagination describes one page of a bill listing
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalBills int `json:"totalBills"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count for total items.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, TotalBills: total, TotalPages: pages}
}

// BillListResponse is the response for listing bills
type BillListResponse struct {
	Bills      []*Bill    `json:"bills"`
	Pagination Pagination `json:"pagination"`
}
