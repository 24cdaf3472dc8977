package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|[a-zA-Z]*)?\\s*\\n?(.*?)```")

// StripFences removes a single outermost triple-backtick fence if the
// model leaked one around raw source output. Inner fences are preserved.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	// Drop the opening fence line (``` or ```tsx etc.).
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return s
	}
	trimmed = strings.TrimRight(trimmed, " \n\t")
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, "```"), " \n\t")
	}
	return trimmed + "\n"
}

// ParseJSONLoose unmarshals model output into v with fallbacks:
// direct parse, then the content of the first fenced block, then the
// substring between the first '{' and the last '}'.
func ParseJSONLoose(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err == nil {
			return nil
		}
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("response is not valid JSON")
}
