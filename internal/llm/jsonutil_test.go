package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "fenced block",
			content: "Here is the phase:\n```json\n{\"name\": \"Foundation\"}\n```\nEnjoy.",
			want:    `{"name": "Foundation"}`,
		},
		{
			name:    "bare object with prose",
			content: `Sure! {"name": "Foundation"} Let me know.`,
			want:    `{"name": "Foundation"}`,
		},
		{
			name:    "trailing comma removed",
			content: `{"keyPoints": ["a", "b",],}`,
			want:    `{"keyPoints": ["a", "b"]}`,
		},
		{
			name:    "comment outside string stripped",
			content: "{\n\"url\": \"http://example.com\", // source\n\"n\": 1\n}",
			want:    "{\n\"url\": \"http://example.com\",\n\"n\": 1\n}",
		},
		{
			name:    "truncated fence kept for repair",
			content: "```json\n{\"name\": \"Found",
			want:    "{\"name\": \"Found",
		},
		{
			name:    "no object",
			content: "I cannot help with that.",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "valid object unchanged", input: ` {"a": 1} `, want: `{"a": 1}`},
		{name: "open brace", input: "{", want: "{}"},
		{name: "open bracket", input: "[", want: "[]"},
		{name: "nested object", input: `{"a": {"b": "c"}`, want: `{"a": {"b": "c"}}`},
		{name: "array of objects", input: `[{"key": "value"}`, want: `[{"key": "value"}]`},
		{name: "unterminated string", input: `{"a": "hello`, want: `{"a": "hello"}`},
		{name: "braces inside string ignored", input: `{"a": "x{y[z`, want: `{"a": "x{y[z"}`},
		{name: "escaped quote inside string", input: `{"a": "say \"hi\"`, want: `{"a": "say \"hi\""}`},
		{name: "dangling comma", input: `{"a": [1, 2,`, want: `{"a": [1, 2]}`},
		{name: "dangling key", input: `{"a":`, want: `{"a": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairJSON(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.want != "" {
				assert.True(t, json.Valid([]byte(got)), "repaired output should be valid JSON: %s", got)
			}
		})
	}
}
