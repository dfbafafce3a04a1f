package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/billchat/internal/domain"
	"github.com/liliang-cn/billchat/internal/seed"
	"go.uber.org/zap"
)

// FileType constants
const (
	FileTypePDF = "pdf"
)

// DetectFileType detects file type from filename
func DetectFileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FileTypePDF
	case "":
		return ""
	default:
		return ext[1:]
	}
}

// IngestService imports bill manifests into the catalog and copies their
// PDFs into local storage
type IngestService struct {
	bills  BillCatalog
	chats  ChatArchive
	pdfDir string
	logger *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(bills BillCatalog, chats ChatArchive, pdfDir string, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		bills:  bills,
		chats:  chats,
		pdfDir: pdfDir,
		logger: logger,
	}
}

// ImportResult summarizes an import run
type ImportResult struct {
	Imported int
	Copied   int
	Cleared  int64
}

// Import stores every entry of m as a bill. With reset, existing chats and
// bills are removed first. Entries are validated and PDFs copied before any
// row is deleted; row inserts after a reset are not transactional.
func (s *IngestService) Import(ctx context.Context, m *seed.Manifest, reset bool) (*ImportResult, error) {
	for i, e := range m.Bills {
		if t := DetectFileType(path.Base(e.PdfURL)); t != FileTypePDF {
			return nil, fmt.Errorf("bill %d: unsupported file type %q", i, t)
		}
		if e.Source != "" {
			if _, err := os.Stat(e.Source); err != nil {
				return nil, fmt.Errorf("bill %d: source: %w", i, err)
			}
		}
	}

	// Copy PDFs before touching stored rows so a failed copy leaves the
	// catalog as it was.
	res := &ImportResult{}
	for _, e := range m.Bills {
		if e.Source == "" {
			continue
		}
		if err := s.copyPDF(e.Source, path.Base(e.PdfURL)); err != nil {
			return nil, err
		}
		res.Copied++
	}

	if reset {
		if _, err := s.chats.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("delete chats: %w", err)
		}
		n, err := s.bills.DeleteAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("delete bills: %w", err)
		}
		res.Cleared = n
	}

	for _, e := range m.Bills {
		date, _ := e.Date()
		bill := &domain.Bill{
			Title:           strings.TrimSpace(e.Title),
			PublicationDate: date,
			PdfURL:          strings.TrimSpace(e.PdfURL),
		}
		if err := s.bills.Create(ctx, bill); err != nil {
			return res, fmt.Errorf("create bill %q: %w", bill.Title, err)
		}
		res.Imported++
		s.logger.Debug("imported bill", zap.String("id", bill.ID), zap.String("title", bill.Title))
	}
	return res, nil
}

func (s *IngestService) copyPDF(src, name string) error {
	if err := os.MkdirAll(s.pdfDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(s.pdfDir, name)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create storage file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to save file: %w", err)
	}
	return out.Close()
}
