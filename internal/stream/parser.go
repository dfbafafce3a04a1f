package stream

import "strings"

// Markers delimiting the thinking segment of a response.
const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

// FallbackAnswer is the answer of an exchange that produced no content.
const FallbackAnswer = "Sorry, I couldn't generate a response..."

// State is the receiving side's view of one exchange.
//
// While the open marker has been seen without its close marker, Thinking
// grows and Answer is nil. Once the close marker arrives the state stays in
// answer accumulation.
type State struct {
	Thinking        *string `json:"thinkingText"`
	Answer          *string `json:"answerText"`
	ThinkingVisible bool    `json:"isThinkingVisible"`
	Complete        bool    `json:"isComplete"`

	Buffer string `json:"-"`
	Err    string `json:"error,omitempty"`
}

// Apply folds one fragment into s and returns the new state.
// It never mutates s and ignores fragments once s is complete.
func Apply(s State, f Fragment) State {
	if s.Complete {
		return s
	}
	switch f.Kind {
	case FragmentContent:
		s.Buffer += f.Content
		return classify(s, false)
	case FragmentError:
		s.Err = f.Error
		return s
	case FragmentDone:
		return Finalize(s)
	}
	return s
}

// Finalize freezes s at end of stream, whether the stream ended with the
// completion sentinel or the connection simply closed.
func Finalize(s State) State {
	if s.Complete {
		return s
	}
	if strings.TrimSpace(s.Buffer) == "" {
		answer := FallbackAnswer
		if s.Err != "" {
			answer = errorAnswer(s.Err)
		}
		s.Thinking = nil
		s.Answer = &answer
	} else {
		// An unclosed thinking segment is kept as thinking.
		s = classify(s, true)
		if s.Err != "" && (s.Answer == nil || *s.Answer == "") {
			answer := errorAnswer(s.Err)
			s.Answer = &answer
		}
	}
	s.ThinkingVisible = false
	s.Complete = true
	return s
}

// Parse classifies a complete response, e.g. one loaded from chat history.
func Parse(response string) State {
	return Finalize(Apply(State{}, Content(response)))
}

// Response encodes the state back into a single response string using the
// marker convention.
func (s State) Response() string {
	var b strings.Builder
	if s.Thinking != nil {
		b.WriteString(OpenMarker)
		b.WriteString(*s.Thinking)
		b.WriteString(CloseMarker)
	}
	if s.Answer != nil && *s.Answer != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(*s.Answer)
	}
	return b.String()
}

func classify(s State, final bool) State {
	buf := s.Buffer
	open := strings.Index(buf, OpenMarker)

	// A close marker ahead of any open marker ends thinking for good; markers
	// after it are answer text.
	if end := strings.Index(buf, CloseMarker); end >= 0 && (open < 0 || end < open) {
		s.Thinking = ptr(strings.TrimSpace(buf[:end]))
		s.Answer = ptr(strings.TrimSpace(buf[end+len(CloseMarker):]))
		s.ThinkingVisible = false
		return s
	}

	if open < 0 {
		if !final {
			buf = trimPartialMarker(trimPartialMarker(buf, CloseMarker), OpenMarker)
		}
		s.Thinking = nil
		s.ThinkingVisible = false
		if text := strings.TrimSpace(buf); text != "" {
			s.Answer = &text
		} else {
			s.Answer = nil
		}
		return s
	}

	prefix := strings.TrimSpace(buf[:open])
	rest := buf[open+len(OpenMarker):]
	end := strings.Index(rest, CloseMarker)

	if end < 0 {
		if !final {
			rest = trimPartialMarker(rest, CloseMarker)
		}
		s.Thinking = ptr(strings.TrimSpace(rest))
		s.Answer = nil
		if final && prefix != "" {
			s.Answer = &prefix
		}
		s.ThinkingVisible = !final
		return s
	}

	answer := strings.TrimSpace(rest[end+len(CloseMarker):])
	if prefix != "" {
		answer = strings.TrimSpace(prefix + "\n\n" + answer)
	}
	s.Thinking = ptr(strings.TrimSpace(rest[:end]))
	s.Answer = &answer
	s.ThinkingVisible = false
	return s
}

// trimPartialMarker drops a trailing proper prefix of marker from s, so a
// marker split across fragments is not briefly shown as text.
func trimPartialMarker(s, marker string) string {
	for n := len(marker) - 1; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return s[:len(s)-n]
		}
	}
	return s
}

func errorAnswer(msg string) string {
	return "Sorry, an error occurred: " + msg
}

func ptr(s string) *string { return &s }
