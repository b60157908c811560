package ai

import (
	"fmt"
	"strings"

	"github.com/notwins/backend/internal/domain"
)

// ExtractJSON returns the first balanced JSON object or array embedded in a model
// reply, skipping prose and markdown fences around it. Brackets inside string
// literals are ignored.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	for start >= 0 {
		if end := matchingClose(text, start); end > start {
			return text[start : end+1], nil
		}
		next := strings.IndexAny(text[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", fmt.Errorf("%w: no JSON found in reply", domain.ErrAIResponseInvalid)
}

// matchingClose returns the index closing the bracket at start, or -1.
func matchingClose(text string, start int) int {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
