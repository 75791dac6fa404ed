package openai

import (
	"errors"
	"strings"
)

// ErrNoJSONObject indicates no JSON object could be located in model output
var ErrNoJSONObject = errors.New("no JSON object found in model output")

// ExtractJSONObject isolates the JSON object embedded in raw model output.
// Models asked for strict JSON still wrap it in markdown fences or prose, so
// fences are stripped and the text is sliced from the first '{' to the last
// '}'. Used by both the file selector and the summarizer.
func ExtractJSONObject(raw string) (string, error) {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}

	return clean[start : end+1], nil
}
