package genai

import (
	"context"
	"fmt"
	"hash/fnv"
	"iter"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/liliang-cn/billchat/internal/stream"
)

var mockThinking = []string{
	"The user is asking about %[1]s. The source document is %[2]s, so I should first recall what the bill is for and who it affects. Then I can pick out the provisions that matter most and keep the summary short.",
	"Let me go through %[1]s step by step. The file %[2]s describes the bill's purpose, its main measures and when they take effect. I will summarise those in plain language.",
	"I need to explain %[1]s. Looking at %[2]s, the key points are the objectives, the obligations it creates and the oversight it sets up. A brief structured answer fits best.",
}

var mockAnswers = []string{
	"%[1]s sets out a framework with clear objectives, new reporting duties for the bodies involved, and a review after its first year in force. The full text is available in %[2]s.",
	"In short, %[1]s introduces targeted measures, assigns responsibility for carrying them out, and defines how progress will be measured. See %[2]s for the detailed provisions.",
	"%[1]s aims to modernise the rules in its area. It defines the scope, lists the main obligations and establishes an oversight process. The document %[2]s contains the complete wording.",
}

// MockGenerator produces a deterministic two-phase completion about a bill.
type MockGenerator struct {
	delay time.Duration
}

// NewMockGenerator creates a mock producer that waits delay before each token.
func NewMockGenerator(delay time.Duration) *MockGenerator {
	return &MockGenerator{delay: delay}
}

func (m *MockGenerator) Name() string { return "mock" }

// Script returns the thinking and answer tokens generated for prompt.
// The same bill always yields the same tokens.
func (m *MockGenerator) Script(prompt stream.Prompt) (thinking, answer []string) {
	title := prompt.BillTitle
	if title == "" {
		title = "this bill"
	}
	file := prompt.FileName
	if file == "" {
		file = "the bill document"
	}

	h := fnv.New64a()
	h.Write([]byte(prompt.BillTitle + "|" + prompt.FileName))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	thinkingText := fmt.Sprintf(mockThinking[rng.IntN(len(mockThinking))], title, file)
	answerText := fmt.Sprintf(mockAnswers[rng.IntN(len(mockAnswers))], title, file)
	return strings.Fields(thinkingText), strings.Fields(answerText)
}

// Stream emits the open marker, the thinking tokens, the close marker, the
// answer tokens and the completion signal, pausing before each token.
func (m *MockGenerator) Stream(ctx context.Context, prompt stream.Prompt) iter.Seq2[stream.Fragment, error] {
	thinking, answer := m.Script(prompt)
	return func(yield func(stream.Fragment, error) bool) {
		emit := func(text string) bool {
			if err := m.wait(ctx); err != nil {
				yield(stream.Fragment{}, err)
				return false
			}
			return yield(stream.Content(text), nil)
		}

		if !emit(stream.OpenMarker) {
			return
		}
		for _, tok := range thinking {
			if !emit(tok + " ") {
				return
			}
		}
		if !emit(stream.CloseMarker) {
			return
		}
		for _, tok := range answer {
			if !emit(tok + " ") {
				return
			}
		}
		yield(stream.Done(), nil)
	}
}

func (m *MockGenerator) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
