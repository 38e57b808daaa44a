package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"decision": "SKIP"}`,
			want:    `{"decision": "SKIP"}`,
		},
		{
			name: "markdown code block",
			content: "Here is my decision:\n```json\n{\"decision\": \"RETRY\"}\n```\nDone.",
			want:    `{"decision": "RETRY"}`,
		},
		{
			name: "code block without language tag",
			content: "```\n{\"decision\": \"ABORT\"}\n```",
			want:    `{"decision": "ABORT"}`,
		},
		{
			name:    "object with surrounding prose",
			content: `Sure! {"decision": "SKIP", "reason": "not needed"} is my answer.`,
			want:    `{"decision": "SKIP", "reason": "not needed"} is my answer.`,
		},
		{
			name:    "no JSON at all",
			content: "I cannot answer that.",
			want:    "",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.content)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.NotEmpty(t, got)
		})
	}
}

func TestExtractJSON_CleansArtifacts(t *testing.T) {
	content := `{
	"decision": "RETRY", // retry with a smaller radius
	"reason": "timeout",
}`

	got := ExtractJSON(content)
	require.NotEmpty(t, got)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &parsed),
		"comments and trailing commas must be stripped: %s", got)
	assert.Equal(t, "RETRY", parsed["decision"])
	assert.Equal(t, "timeout", parsed["reason"])
}

func TestExtractJSON_PreservesURLsInStrings(t *testing.T) {
	content := `{"website": "https://example.com/path"}`

	got := ExtractJSON(content)
	require.NotEmpty(t, got)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, "https://example.com/path", parsed["website"])
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLen int
	}{
		{
			name:    "bare array",
			content: `[{"action": "discover"}, {"action": "enrich"}]`,
			wantLen: 2,
		},
		{
			name: "markdown code block",
			content: "```json\n[{\"action\": \"discover\"}]\n```",
			wantLen: 1,
		},
		{
			name: "array with trailing comma",
			content: `[{"action": "discover"},]`,
			wantLen: 1,
		},
		{
			name:    "empty array",
			content: `[]`,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSONArray(tt.content)
			require.NotEmpty(t, got)

			var parsed []map[string]any
			require.NoError(t, json.Unmarshal([]byte(got), &parsed))
			assert.Len(t, parsed, tt.wantLen)
		})
	}
}

func TestExtractJSONArray_NoArray(t *testing.T) {
	assert.Empty(t, ExtractJSONArray("no array here"))
	assert.Empty(t, ExtractJSONArray(`{"action": "discover"}`))
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "comment after value",
			line: `"discover", // the first step`,
			want: `"discover",`,
		},
		{
			name: "url untouched",
			line: `"url": "http://example.com",`,
			want: `"url": "http://example.com",`,
		},
		{
			name: "url with trailing comment",
			line: `"url": "http://example.com", // homepage`,
			want: `"url": "http://example.com",`,
		},
		{
			name: "no comment",
			line: `"action": "enrich"`,
			want: `"action": "enrich"`,
		},
		{
			name: "escaped quote inside string",
			line: `"note": "say \"hi\" // not a comment"`,
			want: `"note": "say \"hi\" // not a comment"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripLineComment(tt.line))
		})
	}
}
