// Package seed reads bill manifests used to populate the database.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed bills.yaml
var defaultManifest []byte

const dateLayout = "2006-01-02"

// Entry is one bill in a manifest.
type Entry struct {
	Title           string `yaml:"title"`
	PublicationDate string `yaml:"publication_date"`
	PdfURL          string `yaml:"pdf_url"`
	// Source is an optional local file copied into PDF storage.
	Source string `yaml:"source,omitempty"`
}

// Date parses the entry's publication date.
func (e Entry) Date() (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(e.PublicationDate))
}

// Manifest is a list of bills to import.
type Manifest struct {
	Bills []Entry `yaml:"bills"`
}

// Default returns the built-in sample manifest.
func Default() (*Manifest, error) {
	return Parse(strings.NewReader(string(defaultManifest)))
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a manifest.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	for i, e := range m.Bills {
		if strings.TrimSpace(e.Title) == "" {
			return nil, fmt.Errorf("bill %d: title is required", i)
		}
		if strings.TrimSpace(e.PdfURL) == "" {
			return nil, fmt.Errorf("bill %d: pdf_url is required", i)
		}
		if _, err := e.Date(); err != nil {
			return nil, fmt.Errorf("bill %d: invalid publication_date %q: %w", i, e.PublicationDate, err)
		}
	}
	return &m, nil
}
