package postprocessors

import (
	"strings"
	"unicode"
)

// Preprocess normalizes raw document text before chunking.
// Each line is trimmed and internal whitespace runs collapse to one space;
// lines left empty are dropped and the rest are joined with single newlines.
// Preprocess is idempotent and returns "" for empty input.
func Preprocess(raw string) string {
	if raw == "" {
		return ""
	}

	// Normalize line endings
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = collapseSpaces(line); line != "" {
			kept = append(kept, line)
		}
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// collapseSpaces trims the line and replaces every whitespace run with a single space.
func collapseSpaces(line string) string {
	var b strings.Builder
	b.Grow(len(line))

	pendingSpace := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
