// Package json extracts JSON arrays embedded in LLM responses.
//
// Models often wrap the array in commentary or a markdown fence; the
// helpers here find the first array and decode it.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractArray returns the first bracket-delimited array in response.
//
// The scan starts at the first '[' and walks to its matching ']', skipping
// brackets inside string literals. When the balanced span does not parse,
// the span from the first '[' to the last ']' is tried as a fallback.
func extractArray(response string) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	start := strings.Index(response, "[")
	if start == -1 {
		return "", fmt.Errorf("no JSON array found in response: %q", preview(response))
	}

	if end := matchingBracket(response, start); end != -1 {
		candidate := response[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if end := strings.LastIndex(response, "]"); end > start {
		candidate := response[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to extract valid JSON array from response: %q", preview(response))
}

// matchingBracket returns the index of the ']' closing the '[' at start, or -1.
func matchingBracket(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

const previewRunes = 100

// preview shortens response for error messages, cutting on a rune boundary.
func preview(response string) string {
	n := 0
	for i := range response {
		if n == previewRunes {
			return response[:i] + "..."
		}
		n++
	}
	return response
}

// stripMarkdownCodeBlocks removes markdown code block markers from a response.
// Handles patterns like ```json\n...\n``` or ```\n...\n```
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimSpace(trimmed)
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}

// ExtractArrayFromResponse extracts the first JSON array embedded in an LLM
// response and decodes it into a slice of T.
func ExtractArrayFromResponse[T any](response string) ([]T, error) {
	arrayStr, err := extractArray(response)
	if err != nil {
		return nil, err
	}
	var result []T
	if err := json.Unmarshal([]byte(arrayStr), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON array: %w", err)
	}
	return result, nil
}
