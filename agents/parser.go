package agents

import (
	"encoding/json"
	"log"
	"strings"
)

// ParseResult is the three-outcome result of parsing raw model output.
//   - Success=false: the model returned nothing usable (empty response).
//   - Success=true, IsStructured=true: Parsed holds the decoded object.
//   - Success=true, IsStructured=false: text was present but no JSON object
//     could be recovered; the caller must fall back, not treat it as fatal.
type ParseResult struct {
	Success      bool
	IsStructured bool
	Parsed       map[string]any
	ParseError   string
}

// ParseStructured extracts a JSON object from raw model output. The LLM may
// wrap the object in markdown fences or surround it with prose; one bounded
// repair pass (first '{' to the matching '}' by brace depth) is attempted
// before giving up. Never panics regardless of input.
func ParseStructured(raw string) ParseResult {
	content := strings.TrimSpace(raw)
	if content == "" {
		return ParseResult{Success: false, ParseError: "empty model response"}
	}

	content = stripCodeFences(content)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err == nil && parsed != nil {
		return ParseResult{Success: true, IsStructured: true, Parsed: parsed}
	}

	// Repair pass: the model often emits commentary before or after the
	// object, or trailing junk past the final brace.
	candidate := extractJSONObject(content)
	if candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return ParseResult{Success: true, IsStructured: true, Parsed: parsed}
		} else {
			log.Printf("⚠️ [PARSER] Repair pass failed: %v", err)
			return ParseResult{Success: true, IsStructured: false, ParseError: err.Error()}
		}
	}

	return ParseResult{Success: true, IsStructured: false, ParseError: "no JSON object found in response"}
}

// stripCodeFences removes markdown ```json ... ``` wrappers if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// extractJSONObject returns the substring from the first '{' to its matching
// '}' found by brace-depth counting, skipping braces inside string literals.
// Returns "" when no balanced object exists.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
