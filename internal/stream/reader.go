package stream

import (
	"context"
	"io"

	sse "github.com/tmaxmax/go-sse"
)

// ReadExchange consumes an SSE stream produced by Relay, calling onState
// after every applied fragment, and returns the finalized state. Events whose
// payload cannot be decoded are skipped. A stream that ends without the
// completion sentinel is finalized as-is; read errors are returned together
// with the finalized state.
func ReadExchange(ctx context.Context, r io.Reader, onState func(State)) (State, error) {
	var s State
	for ev, err := range sse.Read(r, nil) {
		if err != nil {
			return Finalize(s), err
		}
		if err := ctx.Err(); err != nil {
			return Finalize(s), err
		}
		f, derr := DecodeEvent(ev.Data)
		if derr != nil {
			continue
		}
		s = Apply(s, f)
		if onState != nil {
			onState(s)
		}
		if s.Complete {
			return s, nil
		}
	}
	return Finalize(s), nil
}

// Collect drains a producer without a network hop and returns the finalized
// state together with the producer's failure, if any.
func Collect(ctx context.Context, producer Producer, prompt Prompt) (State, error) {
	var s State
	for f, err := range producer.Stream(ctx, prompt) {
		if err != nil {
			s = Apply(s, Failure(ClientErrorMessage))
			return Finalize(s), err
		}
		s = Apply(s, f)
		if s.Complete {
			return s, nil
		}
	}
	return Finalize(s), nil
}
