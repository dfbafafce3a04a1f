package genai

import (
	"strings"

	"github.com/liliang-cn/billchat/internal/stream"
)

// Selector picks the producer for a chat message.
type Selector struct {
	upstream   stream.Producer
	mock       stream.Producer
	production bool
	directive  string
}

// NewSelector creates a selector. upstream is nil when no endpoint or key is
// configured, in which case the mock is always used.
func NewSelector(upstream, mock stream.Producer, production bool, directive string) *Selector {
	return &Selector{
		upstream:   upstream,
		mock:       mock,
		production: production,
		directive:  strings.ToLower(strings.TrimSpace(directive)),
	}
}

// Select returns the mock outside production, without upstream credentials,
// or when message contains the test directive; otherwise the upstream client.
func (s *Selector) Select(message string) stream.Producer {
	if s.upstream == nil || !s.production {
		return s.mock
	}
	if s.directive != "" && strings.Contains(strings.ToLower(message), s.directive) {
		return s.mock
	}
	return s.upstream
}
