package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFormatPassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "short_text", in: "hello world"},
		{name: "exactly_limit", in: strings.Repeat("a", 40)},
		{name: "empty", in: ""},
		{name: "whitespace_only", in: "   \n\n  "},
		{name: "trailing_whitespace_kept", in: "hello \n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Format(tt.in, 40)
			if len(got) != 1 || got[0] != tt.in {
				t.Fatalf("Format(%q) = %q, want verbatim single element", tt.in, got)
			}
		})
	}
}

func TestFormatDelegatesWhenOverLimit(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	got := Format(in, 40)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(got), got)
	}
}

func TestSplitTwoParagraphsOnePerChunk(t *testing.T) {
	t.Parallel()

	p1 := strings.Repeat("a", 1500)
	p2 := strings.Repeat("b", 1500)
	got := Split(p1+"\n\n"+p2, 2000)

	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0] != p1 || got[1] != p2 {
		t.Fatalf("chunks do not match the paragraphs")
	}
}

func TestSplitPacksSmallParagraphsTogether(t *testing.T) {
	t.Parallel()

	paras := []string{"one", "two", "three"}
	got := Split(strings.Join(paras, "\n\n"), 2000)

	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(got), got)
	}
	if got[0] != "one\n\ntwo\n\nthree" {
		t.Fatalf("got %q", got[0])
	}
}

func TestSplitSentenceFallback(t *testing.T) {
	t.Parallel()

	sentence := strings.Repeat("x", 120) + ". "
	para := strings.TrimSpace(strings.Repeat(sentence, 10)) // one 1200+ char paragraph
	got := Split(para, 500)

	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, c := range got {
		if utf8.RuneCountInString(c) > 500 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, utf8.RuneCountInString(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}

	// Re-joined content matches the input modulo separator whitespace.
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	if normalize(strings.Join(got, " ")) != normalize(para) {
		t.Fatalf("re-joined chunks do not reproduce the paragraph content")
	}
}

func TestSplitUnbrokenRunIsHardCut(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("a", 5000)
	got := Split(in, 2000)

	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	total := 0
	for i, c := range got {
		n := utf8.RuneCountInString(c)
		if n > 2000 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, n)
		}
		total += n
	}
	if total != 5000 {
		t.Fatalf("content lost: total runes %d, want 5000", total)
	}
	if strings.Join(got, "") != in {
		t.Fatalf("concatenated chunks do not reproduce the input")
	}
}

func TestSplitHardCutRespectsRuneBoundaries(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("日本語テキスト", 500) // 3000 runes, 9000 bytes
	got := Split(in, 2000)

	for i, c := range got {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
		if utf8.RuneCountInString(c) > 2000 {
			t.Fatalf("chunk %d exceeds limit", i)
		}
	}
	if strings.Join(got, "") != in {
		t.Fatalf("concatenated chunks do not reproduce the input")
	}
}

func TestSplitLimitInvariant(t *testing.T) {
	t.Parallel()

	inputs := []string{
		strings.Repeat("word ", 2000),
		strings.Repeat("A sentence here. ", 400),
		strings.Repeat(strings.Repeat("p", 300)+"\n\n", 30),
		strings.Repeat("no-boundaries-", 500),
	}
	for _, in := range inputs {
		for _, limit := range []int{100, 500, 2000} {
			for i, c := range Split(in, limit) {
				if utf8.RuneCountInString(c) > limit {
					t.Fatalf("limit %d: chunk %d has %d runes", limit, i, utf8.RuneCountInString(c))
				}
				if strings.TrimSpace(c) == "" {
					t.Fatalf("limit %d: chunk %d is whitespace-only", limit, i)
				}
			}
		}
	}
}

func TestSplitWhitespaceOnly(t *testing.T) {
	t.Parallel()

	if got := Split("  \n\n \n\n  ", 100); len(got) != 0 {
		t.Fatalf("expected no chunks, got %q", got)
	}
}

func TestSplitNonPositiveLimit(t *testing.T) {
	t.Parallel()

	if got := Split("text", 0); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
}
