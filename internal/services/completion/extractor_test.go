package completion_test

import (
	"testing"

	"github.com/guild-helper-bot-go/internal/services/completion"
	"github.com/stretchr/testify/require"
)

const mistralBody = `{"id":"cmpl-1","object":"chat.completion","model":"open-mistral-7b","choices":[{"index":0,"message":{"role":"assistant","tool_calls":null,"content":"hello world"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"total_tokens":7,"completion_tokens":2}}`

func TestLineExtractor(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		found bool
	}{
		{
			name:  "content field",
			raw:   `{"message":{"content":"hello world"}}`,
			want:  "hello world",
			found: true,
		},
		{
			name:  "full response",
			raw:   mistralBody,
			want:  "hello world",
			found: true,
		},
		{
			name:  "marker on a later line",
			raw:   "HTTP noise\n{\"choices\":[{\"message\":{\"content\":\"second line\"}}]}\ntrailer",
			want:  "second line",
			found: true,
		},
		{
			name:  "brace inside the message truncates",
			raw:   `{"message":{"content":"use a map{} here"}}`,
			want:  "use a map{",
			found: true,
		},
		{
			name:  "escape sequences are kept",
			raw:   `{"message":{"content":"line one\nline \"two\""}}`,
			want:  `line one\nline \"two\"`,
			found: true,
		},
		{
			name:  "no terminator takes the rest of the line",
			raw:   `"content":"cut off`,
			want:  "cut off",
			found: true,
		},
		{
			name: "no content field",
			raw:  `{"error":{"message":"bad request"}}`,
			want: completion.FallbackMessage,
		},
		{
			name: "content is not a string",
			raw:  `{"message":{"content":null}}`,
			want: completion.FallbackMessage,
		},
		{
			name: "empty body",
			raw:  "",
			want: completion.FallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := completion.LineExtractor{}.Extract(tt.raw)
			require.Equal(t, tt.want, got.Text)
			require.Equal(t, tt.found, got.Found)
		})
	}
}

func TestStructuredExtractor(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		found bool
	}{
		{
			name:  "full response",
			raw:   mistralBody,
			want:  "hello world",
			found: true,
		},
		{
			name:  "brace and escapes survive",
			raw:   `{"choices":[{"message":{"content":"use a map{} here\nok"}}]}`,
			want:  "use a map{} here\nok",
			found: true,
		},
		{
			name: "no choices",
			raw:  `{"choices":[]}`,
			want: completion.FallbackMessage,
		},
		{
			name: "not json",
			raw:  `content":"hello"}`,
			want: completion.FallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := completion.StructuredExtractor{}.Extract(tt.raw)
			require.Equal(t, tt.want, got.Text)
			require.Equal(t, tt.found, got.Found)
		})
	}
}

func TestNewExtractor(t *testing.T) {
	require.IsType(t, completion.LineExtractor{}, completion.NewExtractor(false))
	require.IsType(t, completion.StructuredExtractor{}, completion.NewExtractor(true))
}
