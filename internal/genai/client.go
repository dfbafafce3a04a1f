// Package genai produces chat completions about bills, either from the
// hosted agent endpoint or from a local mock.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/liliang-cn/billchat/internal/observability"
	"github.com/liliang-cn/billchat/internal/stream"
	openai "github.com/sashabaranov/go-openai"
	sse "github.com/tmaxmax/go-sse"
	"go.uber.org/zap"
)

const (
	completionsPath = "/api/v1/chat/completions"
	maxErrorBody    = 4 << 10
	maxEventSize    = 1 << 20
)

// HTTPStatusError captures a non-2xx upstream response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("genai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// completionRequest is the agent's chat completion request shape.
type completionRequest struct {
	Messages []openai.ChatCompletionMessage `json:"messages"`
	Stream   bool                           `json:"stream"`
	Context  requestContext                 `json:"context"`
}

type requestContext struct {
	BillID    string `json:"bill_id"`
	BillTitle string `json:"bill_title,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// Client streams chat completions from an OpenAI-compatible agent endpoint.
type Client struct {
	endpoint   string
	key        string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *observability.StreamMetrics
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds a whole completion, including reading the stream.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *observability.StreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the agent at endpoint authenticated with key.
func NewClient(endpoint, key string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("genai: endpoint must not be empty")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("genai: key must not be empty")
	}
	c := &Client{
		endpoint: endpoint,
		key:      key,
		// Completions are bounded by WithTimeout, not by the http.Client.
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "upstream" }

func (c *Client) completionsURL() string {
	return c.endpoint + completionsPath
}

// Stream sends prompt to the agent and yields its response fragments.
// Events that cannot be decoded are logged and skipped.
func (c *Client) Stream(ctx context.Context, prompt stream.Prompt) iter.Seq2[stream.Fragment, error] {
	return func(yield func(stream.Fragment, error) bool) {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		resp, err := c.send(ctx, prompt)
		if err != nil {
			yield(stream.Fragment{}, err)
			return
		}
		defer resp.Body.Close()

		for ev, err := range sse.Read(resp.Body, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
			if err != nil {
				yield(stream.Fragment{}, fmt.Errorf("genai: read stream: %w", err))
				return
			}
			data := strings.TrimSpace(ev.Data)
			if data == "" {
				continue
			}
			if data == stream.DoneSentinel {
				yield(stream.Done(), nil)
				return
			}

			var chunk openai.ChatCompletionStreamResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				c.metrics.MalformedEvent()
				c.logger.Warn("skipping malformed upstream event",
					zap.String("bill_id", prompt.BillID),
					zap.Error(err),
				)
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				if !yield(stream.Content(choice.Delta.Content), nil) {
					return
				}
			}
			if choice.FinishReason == openai.FinishReasonStop {
				yield(stream.Done(), nil)
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(stream.Fragment{}, err)
		}
	}
}

func (c *Client) send(ctx context.Context, prompt stream.Prompt) (*http.Response, error) {
	body, err := json.Marshal(completionRequest{
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.Message,
		}},
		Stream: true,
		Context: requestContext{
			BillID:    prompt.BillID,
			BillTitle: prompt.BillTitle,
			FileName:  prompt.FileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai: marshal request: %w", err)
	}

	url := c.completionsURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai: request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, errors.New("genai: response has no body")
	}
	return resp, nil
}
