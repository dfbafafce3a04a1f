package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/billchat/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClientErrorMessage is the error text sent to clients when the producer fails.
const ClientErrorMessage = "Error processing your request"

// Result describes how a relayed stream ended.
type Result struct {
	// Content is the concatenated text written to the client.
	Content   string
	Fragments int
	Outcome   string
	// Completed is true when the stream ended with the completion sentinel.
	Completed bool
	// Cause is the producer failure, if any. It is logged and never sent to the client.
	Cause error
}

// Relay bridges one producer to one outbound SSE stream.
type Relay struct {
	logger  *zap.Logger
	metrics *observability.StreamMetrics
}

// NewRelay creates a relay. metrics may be nil.
func NewRelay(logger *zap.Logger, metrics *observability.StreamMetrics) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{logger: logger, metrics: metrics}
}

// Run opens w, relays the producer's fragments in order and closes w exactly
// once. Producer failures become a single in-band error event; the returned
// error is only set when the outbound stream itself failed, e.g. because the
// client went away.
func (r *Relay) Run(ctx context.Context, w EventWriter, producer Producer, prompt Prompt) (res Result, err error) {
	start := time.Now()
	done := r.metrics.StreamOpened()
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
		done()
		r.metrics.RecordStream(producer.Name(), res.Outcome, res.Fragments, time.Since(start))
	}()

	if err := w.Open(); err != nil {
		res.Outcome = observability.OutcomeDisconnected
		return res, fmt.Errorf("open stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frags := make(chan Fragment)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frags)
		for f, err := range producer.Stream(gctx, prompt) {
			if err != nil {
				return err
			}
			select {
			case frags <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
			if f.Kind == FragmentDone || f.Kind == FragmentError {
				return nil
			}
		}
		return nil
	})

	var (
		content  strings.Builder
		writeErr error
		failure  error
	)
	for f := range frags {
		if writeErr != nil || failure != nil {
			continue
		}
		switch f.Kind {
		case FragmentContent:
			if f.Content == "" {
				continue
			}
			if werr := w.Write(f); werr != nil {
				writeErr = werr
				cancel()
				continue
			}
			content.WriteString(f.Content)
			res.Fragments++
		case FragmentError:
			failure = errors.New(f.Error)
		}
	}
	perr := g.Wait()
	res.Content = content.String()

	switch {
	case writeErr != nil:
		res.Outcome = observability.OutcomeDisconnected
		r.logger.Info("client disconnected during stream", zap.String("bill_id", prompt.BillID), zap.Error(writeErr))
		return res, fmt.Errorf("write stream: %w", writeErr)
	case ctx.Err() != nil && errors.Is(perr, context.Canceled):
		res.Outcome = observability.OutcomeDisconnected
		r.logger.Info("stream cancelled", zap.String("bill_id", prompt.BillID))
		return res, ctx.Err()
	}

	if failure == nil {
		failure = perr
	}
	if failure != nil {
		res.Outcome = observability.OutcomeError
		res.Cause = failure
		r.logger.Error("chat stream failed",
			zap.String("producer", producer.Name()),
			zap.String("bill_id", prompt.BillID),
			zap.Error(failure),
		)
		if werr := w.Write(Failure(ClientErrorMessage)); werr != nil {
			return res, fmt.Errorf("write error event: %w", werr)
		}
		return res, nil
	}

	if werr := w.Write(Done()); werr != nil {
		res.Outcome = observability.OutcomeDisconnected
		return res, fmt.Errorf("write done event: %w", werr)
	}
	res.Outcome = observability.OutcomeCompleted
	res.Completed = true
	return res, nil
}
