package chunk

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	got := Split("short note", Options{Size: 100, Overlap: 20})
	if len(got) != 1 || got[0] != "short note" {
		t.Fatalf("Split = %v, want single chunk", got)
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("   \n\t ", Options{Size: 100, Overlap: 20}); got != nil {
		t.Fatalf("Split of blank text = %v, want nil", got)
	}
}

func TestSplitOverlap(t *testing.T) {
	// Words of fixed width so window positions are predictable.
	text := strings.TrimSpace(strings.Repeat("abcd ", 100)) // 499 runes

	chunks := Split(text, Options{Size: 100, Overlap: 20})
	if len(chunks) < 5 {
		t.Fatalf("got %d chunks, want at least 5", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 100 {
			t.Errorf("chunk %d has %d runes, exceeds window size", i, n)
		}
	}
	// Consecutive windows must share content.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-10:]
		if !strings.Contains(text, tail) {
			t.Fatalf("chunk %d tail %q not found in source", i-1, tail)
		}
	}
}

func TestSplitBreaksOnWordBoundary(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("hello world ", 50))

	chunks := Split(text, Options{Size: 100, Overlap: 10})
	for i, c := range chunks[:len(chunks)-1] {
		if strings.HasSuffix(c, "hel") || strings.HasSuffix(c, "wor") {
			t.Errorf("chunk %d ends mid-word: %q", i, c[len(c)-10:])
		}
	}
}

func TestSplitCoversWholeText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("0123456789 ", 30))

	chunks := Split(text, Options{Size: 50, Overlap: 10})
	joined := strings.Join(chunks, " ")
	if !strings.Contains(joined, text[len(text)-9:]) {
		t.Fatal("last part of text missing from chunks")
	}
	if !strings.HasPrefix(chunks[0], text[:10]) {
		t.Fatal("first chunk does not start at text beginning")
	}
}

func TestSplitSmallOverlapLosesNothing(t *testing.T) {
	// With an overlap smaller than the boundary look-back window, a
	// pulled-back cut must not skip the runes between the cut and the
	// nominal window end. Every word has to survive into some chunk.
	words := make([]string, 40)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}
	text := strings.Join(words, " ")

	chunks := Split(text, Options{Size: 50, Overlap: 0})
	for _, w := range words {
		found := false
		for _, c := range chunks {
			if strings.Contains(c, w) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("word %q missing from every chunk", w)
		}
	}
}

func TestSplitMinSizeDropsFragments(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 21)) // 104 runes

	chunks := Split(text, Options{Size: 100, Overlap: 0, MinSize: 30})
	for i, c := range chunks {
		if len([]rune(c)) < 30 {
			t.Errorf("chunk %d shorter than MinSize: %q", i, c)
		}
	}
}

func TestSplitDegenerateOptions(t *testing.T) {
	// Overlap >= size must not loop forever.
	chunks := Split(strings.Repeat("x", 500), Options{Size: 100, Overlap: 100})
	if len(chunks) == 0 {
		t.Fatal("no chunks for degenerate overlap")
	}
	chunks = Split("some text here", Options{})
	if len(chunks) != 1 {
		t.Fatalf("zero-value options: got %d chunks, want 1", len(chunks))
	}
}
