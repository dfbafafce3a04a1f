package stream

import (
	"errors"
	"net/http"
	"sync"
)

// ErrWriterClosed is returned by writes after Close.
var ErrWriterClosed = errors.New("stream: writer closed")

// EventWriter is the outbound side of a relayed stream.
type EventWriter interface {
	// Open commits the stream headers and flushes them to the client.
	Open() error
	// Write sends one fragment as a single SSE event.
	Write(f Fragment) error
	// Close ends the stream. Calls after the first are no-ops.
	Close() error
}

// SetSSEHeaders sets the headers of an event stream response.
func SetSSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// HTTPWriter writes SSE events to an http.ResponseWriter.
type HTTPWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	opened bool
	closed bool
}

// NewHTTPWriter wraps w. Flushing is skipped when w does not support it.
func NewHTTPWriter(w http.ResponseWriter) *HTTPWriter {
	flusher, _ := w.(http.Flusher)
	return &HTTPWriter{w: w, flusher: flusher}
}

func (hw *HTTPWriter) Open() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.closed {
		return ErrWriterClosed
	}
	if hw.opened {
		return nil
	}
	SetSSEHeaders(hw.w.Header())
	hw.w.WriteHeader(http.StatusOK)
	hw.opened = true
	hw.flush()
	return nil
}

func (hw *HTTPWriter) Write(f Fragment) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.closed {
		return ErrWriterClosed
	}
	if _, err := f.Message().WriteTo(hw.w); err != nil {
		return err
	}
	hw.flush()
	return nil
}

func (hw *HTTPWriter) Close() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.closed {
		return nil
	}
	hw.closed = true
	hw.flush()
	return nil
}

func (hw *HTTPWriter) flush() {
	if hw.flusher != nil {
		hw.flusher.Flush()
	}
}
