package stream

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragment_Message(t *testing.T) {
	assert.Equal(t, "data: {\"content\":\"hi \\\"there\\\"\\n\"}\n\n", Content("hi \"there\"\n").Message().String())
	assert.Equal(t, "data: {\"error\":\"boom\"}\n\n", Failure("boom").Message().String())
	assert.Equal(t, "data: [DONE]\n\n", Done().Message().String())
}

func TestDecodeEvent(t *testing.T) {
	f, err := DecodeEvent(`{"content":"abc"}`)
	require.NoError(t, err)
	assert.Equal(t, Content("abc"), f)

	f, err = DecodeEvent(`{"error":"boom"}`)
	require.NoError(t, err)
	assert.Equal(t, Failure("boom"), f)

	f, err = DecodeEvent(" [DONE] ")
	require.NoError(t, err)
	assert.Equal(t, Done(), f)

	_, err = DecodeEvent("{not json")
	require.Error(t, err)

	_, err = DecodeEvent("")
	require.Error(t, err)
}

func TestReadExchange_Complete(t *testing.T) {
	body := Content(OpenMarker).Message().String() +
		Content("think ").Message().String() +
		Content(CloseMarker).Message().String() +
		Content("answer ").Message().String() +
		Done().Message().String() +
		Content("ignored").Message().String()

	var states []State
	s, err := ReadExchange(context.Background(), strings.NewReader(body), func(s State) {
		states = append(states, s)
	})
	require.NoError(t, err)

	assert.True(t, s.Complete)
	assert.Equal(t, "think", *s.Thinking)
	assert.Equal(t, "answer", *s.Answer)
	require.Len(t, states, 5)
	assert.True(t, states[1].ThinkingVisible)
	assert.False(t, states[3].ThinkingVisible)
}

func TestReadExchange_MalformedAndError(t *testing.T) {
	body := "data: {broken\n\n" + Failure(ClientErrorMessage).Message().String()

	s, err := ReadExchange(context.Background(), strings.NewReader(body), nil)
	require.NoError(t, err)
	assert.True(t, s.Complete)
	assert.Nil(t, s.Thinking)
	require.NotNil(t, s.Answer)
	assert.NotEmpty(t, *s.Answer)
	assert.Contains(t, *s.Answer, ClientErrorMessage)
}

func TestReadExchange_ConnectionClosedMidThinking(t *testing.T) {
	body := Content(OpenMarker + "half a thou").Message().String()

	s, err := ReadExchange(context.Background(), strings.NewReader(body), nil)
	require.NoError(t, err)
	assert.Equal(t, "half a thou", *s.Thinking)
	assert.Nil(t, s.Answer)
}

func TestReadExchange_Empty(t *testing.T) {
	s, err := ReadExchange(context.Background(), strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, *s.Answer)
	assert.Nil(t, s.Thinking)
}

type seqProducer struct {
	frags []Fragment
	err   error
}

func (p *seqProducer) Name() string { return "seq" }

func (p *seqProducer) Stream(_ context.Context, _ Prompt) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for _, f := range p.frags {
			if !yield(f, nil) {
				return
			}
		}
		if p.err != nil {
			yield(Fragment{}, p.err)
		}
	}
}

func TestCollect(t *testing.T) {
	s, err := Collect(context.Background(), &seqProducer{frags: []Fragment{
		Content(OpenMarker), Content("a "), Content(CloseMarker), Content("b "), Done(),
	}}, Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "a", *s.Thinking)
	assert.Equal(t, "b", *s.Answer)

	s, err = Collect(context.Background(), &seqProducer{err: errors.New("down")}, Prompt{})
	require.Error(t, err)
	assert.True(t, s.Complete)
	assert.Contains(t, *s.Answer, ClientErrorMessage)
}

func TestFragment_MessageKeepsMarkers(t *testing.T) {
	assert.Equal(t, "data: {\"content\":\"<think>\"}\n\n", Content(OpenMarker).Message().String())
}
