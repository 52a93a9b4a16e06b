package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON cleans a model completion down to the JSON document it should
// contain. Models routinely wrap output in markdown fences despite being
// told not to; strip a leading ```/```json line and a trailing ``` line
// before decoding.
func ExtractJSON(raw string, v any) error {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return fmt.Errorf("empty completion")
	}
	if strings.HasPrefix(txt, "```") {
		lines := strings.Split(txt, "\n")
		if strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
			lines = lines[:n-1]
		}
		txt = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	// Tolerate chatter before/after the document: decode from the first
	// opening brace.
	if i := strings.IndexByte(txt, '{'); i > 0 {
		txt = txt[i:]
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(txt)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode completion JSON: %w", err)
	}
	return nil
}
