package chunk

import "strings"

// Options controls the sliding window. Size and Overlap are rune counts;
// MinSize drops trailing fragments too small to embed usefully.
type Options struct {
	Size    int
	Overlap int
	MinSize int
}

const (
	defaultSize    = 1200
	defaultOverlap = 200
)

func (o Options) normalized() Options {
	if o.Size <= 0 {
		o.Size = defaultSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.Size {
		o.Overlap = o.Size / 2
	}
	if o.MinSize < 0 {
		o.MinSize = 0
	}
	return o
}

// Split cuts text into overlapping windows. When a window would cut a
// word in half, the cut is pulled back to the nearest space, newline or
// period inside the last tenth of the window.
func Split(text string, opts Options) []string {
	opts = opts.normalized()

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= opts.Size {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + opts.Size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			lookBack := opts.Size / 10
			if lookBack > end-start {
				lookBack = end - start
			}
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" && len([]rune(piece)) >= opts.MinSize {
			chunks = append(chunks, piece)
		} else if piece != "" && len(chunks) == 0 {
			// Never drop a document's only content.
			chunks = append(chunks, piece)
		}

		if end == len(runes) {
			break
		}
		// Advance from where this window actually ended, so a boundary
		// pull-back never leaves a gap between consecutive windows.
		next := end - opts.Overlap
		if next <= start {
			next = start + opts.Size - opts.Overlap
		}
		start = next
	}
	return chunks
}
