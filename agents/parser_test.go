package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredCleanObject(t *testing.T) {
	result := ParseStructured(`{"title": "Wireless Mouse", "confidence": 0.8}`)
	require.True(t, result.Success)
	require.True(t, result.IsStructured)
	assert.Equal(t, "Wireless Mouse", result.Parsed["title"])
	assert.Equal(t, 0.8, result.Parsed["confidence"])
}

func TestParseStructuredMarkdownFences(t *testing.T) {
	raw := "```json\n{\"title\": \"X\"}\n```"
	result := ParseStructured(raw)
	require.True(t, result.Success)
	require.True(t, result.IsStructured)
	assert.Equal(t, "X", result.Parsed["title"])
}

func TestParseStructuredProseAroundObject(t *testing.T) {
	raw := `Sure! Here is the listing data you asked for:
{"title": "Desk Lamp", "keywords": ["lamp", "desk"]}
Let me know if you need anything else.`
	result := ParseStructured(raw)
	require.True(t, result.Success)
	require.True(t, result.IsStructured)
	assert.Equal(t, "Desk Lamp", result.Parsed["title"])
}

func TestParseStructuredNestedBracesInStrings(t *testing.T) {
	raw := `prefix {"description": "use {curly} braces \"freely\"", "n": 1} suffix`
	result := ParseStructured(raw)
	require.True(t, result.Success)
	require.True(t, result.IsStructured)
	assert.Equal(t, `use {curly} braces "freely"`, result.Parsed["description"])
}

func TestParseStructuredTruncatedObject(t *testing.T) {
	result := ParseStructured(`{"title": "cut off here`)
	require.True(t, result.Success)
	assert.False(t, result.IsStructured)
	assert.Nil(t, result.Parsed)
}

func TestParseStructuredNoObjectAtAll(t *testing.T) {
	result := ParseStructured("I could not produce JSON for this request.")
	require.True(t, result.Success)
	assert.False(t, result.IsStructured)
}

func TestParseStructuredEmptyResponse(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		result := ParseStructured(raw)
		assert.False(t, result.Success, "raw=%q", raw)
	}
}

// Every malformed input must land in one of the three outcomes without
// panicking.
func TestParseStructuredNeverPanics(t *testing.T) {
	inputs := []string{
		"{", "}", "{}}", "{{", `{"a":}`, "```json", "``` ```",
		`{"a": "b"` + "\x00" + `}`, "null", "[1,2,3]", `"just a string"`,
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() {
			result := ParseStructured(raw)
			if result.Success && result.IsStructured {
				assert.NotNil(t, result.Parsed)
			}
		}, "raw=%q", raw)
	}
}
