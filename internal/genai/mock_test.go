package genai

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/liliang-cn/billchat/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var climatePrompt = stream.Prompt{
	Message:   "test thinking",
	BillID:    "bill-2",
	BillTitle: "Climate Action Plan 2025",
	FileName:  "climate-action-plan.pdf",
}

func TestMockGenerator_Deterministic(t *testing.T) {
	m := NewMockGenerator(0)

	th1, an1 := m.Script(climatePrompt)
	th2, an2 := m.Script(climatePrompt)
	assert.Equal(t, th1, th2)
	assert.Equal(t, an1, an2)
	assert.NotEmpty(t, th1)
	assert.Contains(t, strings.Join(an1, " "), "Climate Action Plan 2025")

	_, other := m.Script(stream.Prompt{BillTitle: "Healthcare Access Act", FileName: "healthcare-access-act.pdf"})
	assert.Contains(t, strings.Join(other, " "), "Healthcare Access Act")
}

func TestMockGenerator_Order(t *testing.T) {
	m := NewMockGenerator(0)
	thinking, answer := m.Script(climatePrompt)

	var frags []stream.Fragment
	for f, err := range m.Stream(context.Background(), climatePrompt) {
		require.NoError(t, err)
		frags = append(frags, f)
	}

	require.Len(t, frags, len(thinking)+len(answer)+3)
	assert.Equal(t, stream.Content(stream.OpenMarker), frags[0])
	for i, tok := range thinking {
		assert.Equal(t, stream.Content(tok+" "), frags[1+i])
	}
	assert.Equal(t, stream.Content(stream.CloseMarker), frags[1+len(thinking)])
	for i, tok := range answer {
		assert.Equal(t, stream.Content(tok+" "), frags[2+len(thinking)+i])
	}
	assert.Equal(t, stream.Done(), frags[len(frags)-1])
}

func TestMockGenerator_ParserReconstructs(t *testing.T) {
	m := NewMockGenerator(0)
	thinking, answer := m.Script(climatePrompt)

	s, err := stream.Collect(context.Background(), m, climatePrompt)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(thinking, " "), *s.Thinking)
	assert.Equal(t, strings.Join(answer, " "), *s.Answer)
}

func TestMockGenerator_Cancellation(t *testing.T) {
	m := NewMockGenerator(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range m.Stream(ctx, climatePrompt) {
		if err != nil {
			gotErr = err
			break
		}
	}
	require.ErrorIs(t, gotErr, context.Canceled)
}

func TestMockGenerator_DelayDoesNotBlockOthers(t *testing.T) {
	m := NewMockGenerator(5 * time.Millisecond)
	start := time.Now()

	done := make(chan struct{}, 2)
	for range 2 {
		go func() {
			_, _ = stream.Collect(context.Background(), m, climatePrompt)
			done <- struct{}{}
		}()
	}
	<-done
	<-done

	thinking, answer := m.Script(climatePrompt)
	serial := time.Duration(2*(len(thinking)+len(answer)+2)) * 5 * time.Millisecond
	assert.Less(t, time.Since(start), serial)
}

// An end-to-end run of the test directive against a known bill.
func TestMockThroughRelay_ClimateScenario(t *testing.T) {
	selector := NewSelector(nil, NewMockGenerator(time.Millisecond), true, "test thinking")
	producer := selector.Select(climatePrompt.Message)
	require.Equal(t, "mock", producer.Name())

	rec := httptest.NewRecorder()
	res, err := stream.NewRelay(zap.NewNop(), nil).Run(context.Background(), stream.NewHTTPWriter(rec), producer, climatePrompt)
	require.NoError(t, err)
	require.True(t, res.Completed)

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: {\"content\":\"<think>\"}\n\n"))
	assert.Contains(t, body, "data: {\"content\":\"</think>\"}\n\n")
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.Equal(t, 1, strings.Count(body, stream.DoneSentinel))

	afterClose := body[strings.Index(body, "</think>"):]
	assert.Contains(t, afterClose, "Climate")

	s, err := stream.ReadExchange(context.Background(), strings.NewReader(body), nil)
	require.NoError(t, err)
	assert.True(t, s.Complete)
	require.NotNil(t, s.Thinking)
	require.NotNil(t, s.Answer)
	assert.NotEmpty(t, *s.Thinking)
	assert.Contains(t, *s.Answer, "Climate Action Plan 2025")
	assert.False(t, s.ThinkingVisible)
}
