package indexer

import "strings"

const (
	// defaultLookahead is how far past the nominal boundary the chunker
	// searches for a sentence break. Independent of the chunk size.
	defaultLookahead = 100
)

// Chunk is one passage produced by the chunker. Start and End are rune
// offsets into the normalized input text, before edge trimming.
type Chunk struct {
	Start int
	End   int
	Text  string
}

// Chunker splits document text into overlapping passages at natural
// boundaries. Sizes are measured in runes so multi-byte scripts chunk the
// same way as ASCII.
type Chunker struct {
	Size      int // Nominal passage length
	Overlap   int // Runes shared between consecutive passages
	Lookahead int // Window past the nominal boundary to search for a break
}

// NewChunker creates a chunker with the given size and overlap.
// Overlap must be smaller than size; config validation enforces that.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		Size:      size,
		Overlap:   overlap,
		Lookahead: defaultLookahead,
	}
}

// Chunk splits text into ordered overlapping passages.
//
// The scan is greedy: each boundary is proposed at start+Size, then snapped
// forward to the last sentence terminator or newline within the lookahead
// window so passages do not end mid-sentence. The next passage starts at
// end-Overlap; if that would not advance past the current start, the start is
// forced to end so the scan always terminates.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(normalizeText(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0

	for start < len(runes) {
		end := start + c.Size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.snapToBreak(runes, end)
		}

		if trimmed := strings.TrimSpace(string(runes[start:end])); trimmed != "" {
			chunks = append(chunks, Chunk{Start: start, End: end, Text: trimmed})
		}

		if end >= len(runes) {
			break
		}

		next := end - c.Overlap
		if next <= start {
			// Overlap would stall the scan; give up the overlap for this step.
			next = end
		}
		start = next
	}

	return chunks
}

// snapToBreak moves the proposed boundary forward to just after the last
// sentence terminator or newline within the lookahead window, if any.
func (c *Chunker) snapToBreak(runes []rune, end int) int {
	limit := end + c.Lookahead
	if limit > len(runes) {
		limit = len(runes)
	}

	snapped := end
	for i := end; i < limit; i++ {
		if isSentenceBreak(runes[i]) {
			snapped = i + 1
		}
	}
	return snapped
}

// isSentenceBreak reports whether r terminates a sentence or line.
// CJK full stops are included; transcripts and Korean blog posts use them.
func isSentenceBreak(r rune) bool {
	switch r {
	case '.', '!', '?', '\n', '。', '！', '？':
		return true
	}
	return false
}

// normalizeText converts line endings to \n and trims surrounding whitespace.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
