package pipeline

import (
	"strings"

	"github.com/typist/gowhisperx/internal/inference"
)

// Assemble stitches segment texts into one cleaned string. Segments are
// trimmed and empty ones skipped; a single space separates neighbors unless
// the next segment starts with closing punctuation, which attaches directly.
func Assemble(segments []inference.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 && !startsWithPunct(text) {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String())
}

func startsWithPunct(s string) bool {
	switch s[0] {
	case '.', ',', '!', '?', ';', ':':
		return true
	}
	return false
}
