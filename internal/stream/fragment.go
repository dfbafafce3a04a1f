// Package stream carries chat completions from a producer to a client over
// server-sent events and rebuilds the thinking/answer message on the
// receiving side.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"

	sse "github.com/tmaxmax/go-sse"
)

// DoneSentinel is the data of the terminal event of a completed stream.
const DoneSentinel = "[DONE]"

// FragmentKind tells what a Fragment carries.
type FragmentKind int

const (
	FragmentContent FragmentKind = iota
	FragmentError
	FragmentDone
)

// Fragment is one unit of incremental text or control signal.
type Fragment struct {
	Kind    FragmentKind
	Content string
	Error   string
}

// Content returns a text fragment.
func Content(text string) Fragment { return Fragment{Kind: FragmentContent, Content: text} }

// Failure returns an error fragment.
func Failure(msg string) Fragment { return Fragment{Kind: FragmentError, Error: msg} }

// Done returns the completion signal.
func Done() Fragment { return Fragment{Kind: FragmentDone} }

// Prompt is the input handed to a producer.
type Prompt struct {
	Message   string
	BillID    string
	BillTitle string
	FileName  string
}

// Producer yields the fragments of one completion. A non-nil error is a
// terminal failure; a FragmentDone fragment signals normal completion.
type Producer interface {
	Name() string
	Stream(ctx context.Context, prompt Prompt) iter.Seq2[Fragment, error]
}

// payload is the JSON body of a content or error event.
type payload struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

var errEmptyEvent = errors.New("stream: empty event data")

// Message encodes f as an outbound SSE message.
func (f Fragment) Message() *sse.Message {
	msg := &sse.Message{}
	switch f.Kind {
	case FragmentDone:
		msg.AppendData(DoneSentinel)
	case FragmentError:
		msg.AppendData(encodePayload(payload{Error: f.Error}))
	default:
		msg.AppendData(encodePayload(payload{Content: f.Content}))
	}
	return msg
}

// encodePayload marshals p without HTML escaping so markers stay readable on the wire.
func encodePayload(p payload) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(p)
	return strings.TrimSuffix(b.String(), "\n")
}

// DecodeEvent turns the data of one received event back into a Fragment.
func DecodeEvent(data string) (Fragment, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Fragment{}, errEmptyEvent
	}
	if data == DoneSentinel {
		return Done(), nil
	}
	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Fragment{}, err
	}
	if p.Error != "" {
		return Failure(p.Error), nil
	}
	return Content(p.Content), nil
}
