package completion

import (
	"strings"

	"github.com/tidwall/gjson"
)

// FallbackMessage is the reply used whenever no text can be recovered
const FallbackMessage = "Sorry, I couldn't generate a response."

const (
	lineMarker    = `content":`
	openingMarker = `content":"`
)

// Result is the text recovered from a completion response
type Result struct {
	Text  string
	Found bool
}

// Extractor recovers the generated message from a raw response body. It
// never fails; a miss yields the fallback message.
type Extractor interface {
	Extract(raw string) Result
}

// NewExtractor returns the structured extractor when structured is set and
// the line extractor otherwise.
func NewExtractor(structured bool) Extractor {
	if structured {
		return StructuredExtractor{}
	}
	return LineExtractor{}
}

func fallback() Result {
	return Result{Text: FallbackMessage}
}

// LineExtractor scans for the first line mentioning a content field and cuts
// the text between `content":"` and the next `}`. Escape sequences are left
// as they are, and a `}` inside the message ends it early.
type LineExtractor struct{}

func (LineExtractor) Extract(raw string) Result {
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, lineMarker) {
			continue
		}
		_, rest, ok := strings.Cut(line, openingMarker)
		if !ok {
			return fallback()
		}
		if end := strings.IndexByte(rest, '}'); end >= 0 {
			rest = rest[:end]
		}
		return Result{Text: strings.TrimSuffix(rest, `"`), Found: true}
	}
	return fallback()
}

// StructuredExtractor reads choices.0.message.content from a chat
// completion document.
type StructuredExtractor struct{}

func (StructuredExtractor) Extract(raw string) Result {
	if !gjson.Valid(raw) {
		return fallback()
	}
	content := gjson.Get(raw, "choices.0.message.content")
	if content.Type != gjson.String {
		return fallback()
	}
	return Result{Text: content.String(), Found: true}
}
