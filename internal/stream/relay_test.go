package stream

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/liliang-cn/billchat/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingWriter records every call made by the relay.
type recordingWriter struct {
	mu        sync.Mutex
	opened    bool
	events    []Fragment
	closes    int
	failAfter int // fail writes once this many events were written; <0 never
}

func newRecordingWriter() *recordingWriter { return &recordingWriter{failAfter: -1} }

func (w *recordingWriter) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = true
	return nil
}

func (w *recordingWriter) Write(f Fragment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAfter >= 0 && len(w.events) >= w.failAfter {
		return errors.New("broken pipe")
	}
	w.events = append(w.events, f)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

func (w *recordingWriter) isOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opened
}

func (w *recordingWriter) count(kind FragmentKind) int {
	n := 0
	for _, f := range w.events {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// funcProducer adapts a function to Producer.
type funcProducer func(ctx context.Context, yield func(Fragment, error) bool)

func (p funcProducer) Name() string { return "test" }

func (p funcProducer) Stream(ctx context.Context, _ Prompt) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) { p(ctx, yield) }
}

func newTestRelay(t *testing.T) (*Relay, *observability.StreamMetrics) {
	t.Helper()
	m := observability.NewStreamMetrics(prometheus.NewRegistry())
	return NewRelay(zap.NewNop(), m), m
}

func TestRelay_Completes(t *testing.T) {
	relay, metrics := newTestRelay(t)
	w := newRecordingWriter()

	res, err := relay.Run(context.Background(), w, &seqProducer{frags: []Fragment{
		Content("Hello "), Content(""), Content("world"), Done(),
	}}, Prompt{BillID: "b1"})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, "Hello world", res.Content)
	assert.Equal(t, 2, res.Fragments)
	assert.Equal(t, []Fragment{Content("Hello "), Content("world"), Done()}, w.events)
	assert.Equal(t, 1, w.closes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StreamsTotal.WithLabelValues("seq", observability.OutcomeCompleted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveStreams))
}

func TestRelay_OpensBeforePulling(t *testing.T) {
	relay, _ := newTestRelay(t)
	w := newRecordingWriter()

	var openAtStart bool
	_, err := relay.Run(context.Background(), w, funcProducer(func(_ context.Context, yield func(Fragment, error) bool) {
		openAtStart = w.isOpen()
		yield(Done(), nil)
	}), Prompt{})
	require.NoError(t, err)
	assert.True(t, openAtStart)
}

func TestRelay_NoContentAfterDone(t *testing.T) {
	relay, _ := newTestRelay(t)
	w := newRecordingWriter()

	_, err := relay.Run(context.Background(), w, funcProducer(func(_ context.Context, yield func(Fragment, error) bool) {
		for _, f := range []Fragment{Content("a"), Done(), Content("late"), Done()} {
			if !yield(f, nil) {
				return
			}
		}
	}), Prompt{})
	require.NoError(t, err)

	assert.Equal(t, 1, w.count(FragmentDone))
	assert.Equal(t, Done(), w.events[len(w.events)-1])
	assert.Equal(t, 1, w.closes)
}

func TestRelay_EndWithoutDoneStillTerminates(t *testing.T) {
	relay, _ := newTestRelay(t)
	w := newRecordingWriter()

	res, err := relay.Run(context.Background(), w, &seqProducer{frags: []Fragment{Content("a")}}, Prompt{})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, []Fragment{Content("a"), Done()}, w.events)
}

func TestRelay_ProducerFailure(t *testing.T) {
	relay, metrics := newTestRelay(t)
	w := newRecordingWriter()
	cause := errors.New("upstream reset")

	res, err := relay.Run(context.Background(), w, &seqProducer{
		frags: []Fragment{Content("partial")},
		err:   cause,
	}, Prompt{})
	require.NoError(t, err)

	assert.False(t, res.Completed)
	assert.ErrorIs(t, res.Cause, cause)
	assert.Equal(t, []Fragment{Content("partial"), Failure(ClientErrorMessage)}, w.events)
	assert.Equal(t, 1, w.count(FragmentError))
	assert.Equal(t, 0, w.count(FragmentDone))
	assert.Equal(t, 1, w.closes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StreamsTotal.WithLabelValues("seq", observability.OutcomeError)))
}

func TestRelay_ProducerErrorFragment(t *testing.T) {
	relay, _ := newTestRelay(t)
	w := newRecordingWriter()

	res, err := relay.Run(context.Background(), w, &seqProducer{frags: []Fragment{
		Failure("bad gateway"), Content("never"),
	}}, Prompt{})
	require.NoError(t, err)
	assert.EqualError(t, res.Cause, "bad gateway")
	assert.Equal(t, []Fragment{Failure(ClientErrorMessage)}, w.events)
	assert.Equal(t, 1, w.closes)
}

func TestRelay_ClientGoneReleasesProducer(t *testing.T) {
	relay, metrics := newTestRelay(t)
	w := newRecordingWriter()
	w.failAfter = 2

	released := make(chan struct{})
	res, err := relay.Run(context.Background(), w, funcProducer(func(ctx context.Context, yield func(Fragment, error) bool) {
		defer close(released)
		for {
			if !yield(Content("tick "), nil) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}), Prompt{})
	require.Error(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, observability.OutcomeDisconnected, res.Outcome)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("producer was not released")
	}
	assert.Len(t, w.events, 2)
	assert.Equal(t, 1, w.closes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StreamsTotal.WithLabelValues("test", observability.OutcomeDisconnected)))
}

func TestRelay_ParentCancelled(t *testing.T) {
	relay, _ := newTestRelay(t)
	w := newRecordingWriter()
	ctx, cancel := context.WithCancel(context.Background())

	res, err := relay.Run(ctx, w, funcProducer(func(ctx context.Context, yield func(Fragment, error) bool) {
		if !yield(Content("first"), nil) {
			return
		}
		cancel()
		<-ctx.Done()
		yield(Fragment{}, ctx.Err())
	}), Prompt{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, observability.OutcomeDisconnected, res.Outcome)
	assert.Equal(t, 0, w.count(FragmentDone))
	assert.Equal(t, 0, w.count(FragmentError))
	assert.Equal(t, 1, w.closes)
}

func TestRelay_HTTPWriter(t *testing.T) {
	relay, _ := newTestRelay(t)
	rec := httptest.NewRecorder()

	_, err := relay.Run(context.Background(), NewHTTPWriter(rec), &seqProducer{frags: []Fragment{
		Content(OpenMarker), Content("hmm "), Content(CloseMarker), Content("ok"), Done(),
	}}, Prompt{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, rec.Flushed)
	assert.Equal(t,
		"data: {\"content\":\"<think>\"}\n\n"+
			"data: {\"content\":\"hmm \"}\n\n"+
			"data: {\"content\":\"</think>\"}\n\n"+
			"data: {\"content\":\"ok\"}\n\n"+
			"data: [DONE]\n\n",
		rec.Body.String())
}

func TestHTTPWriter_CloseIsIdempotent(t *testing.T) {
	w := NewHTTPWriter(httptest.NewRecorder())
	require.NoError(t, w.Open())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Write(Content("x")), ErrWriterClosed)
}
