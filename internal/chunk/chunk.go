// Package chunk splits long answer text into messages that fit the
// transport's per-message size limit. Splits prefer paragraph boundaries,
// then sentence boundaries, and only hard-cut when a single unbroken run
// is longer than the limit.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// MessageLimit is the maximum character length of one Discord message.
// Fixed by the transport, not configurable.
const MessageLimit = 2000

// Format returns text as a single message when it already fits within
// limit (the common case, returned verbatim), otherwise delegates to Split.
func Format(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	return Split(text, limit)
}

// Split breaks text into ordered chunks, each at most limit runes after
// trimming. Chunks are never empty. Limits are counted in runes: Discord's
// limit is characters, and answers are arbitrary UTF-8.
func Split(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	cur := 0

	flush := func() {
		c := strings.TrimSpace(buf.String())
		if c != "" {
			chunks = append(chunks, c)
		}
		buf.Reset()
		cur = 0
	}

	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		// +2 accounts for the paragraph separator kept inside the buffer.
		if cur+paraLen+2 > limit {
			flush()
			if paraLen > limit {
				// Paragraph cannot fit even alone: re-pack at sentence
				// granularity. Sentence boundaries (". ") become line
				// breaks; fragments are accumulated greedily.
				sentences := strings.Split(strings.ReplaceAll(para, ". ", ".\n"), "\n")
				for _, sentence := range sentences {
					if strings.TrimSpace(sentence) == "" {
						continue
					}
					sentLen := utf8.RuneCountInString(sentence)
					if sentLen > limit {
						// No usable boundary left. Hard-cut at rune
						// boundaries so the limit invariant holds
						// unconditionally.
						flush()
						for _, piece := range sliceRunes(sentence, limit) {
							if piece = strings.TrimSpace(piece); piece != "" {
								chunks = append(chunks, piece)
							}
						}
						continue
					}
					if cur+sentLen+1 > limit {
						flush()
					}
					buf.WriteString(sentence)
					buf.WriteString(" ")
					cur += sentLen + 1
				}
				continue
			}
		}
		buf.WriteString(para)
		buf.WriteString("\n\n")
		cur += paraLen + 2
	}
	flush()

	return chunks
}

func sliceRunes(s string, limit int) []string {
	var out []string
	r := []rune(s)
	for len(r) > limit {
		out = append(out, string(r[:limit]))
		r = r[limit:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
