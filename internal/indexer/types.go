package indexer

// TranscriptSegment is one time-coded piece of a video transcript.
type TranscriptSegment struct {
	// Start is the segment start, in seconds from the beginning of the media.
	Start float64 `json:"start"`
	// Text is the transcript text for this segment.
	Text string `json:"text"`
}

// IngestRequest describes one document to ingest.
// ARTICLE sources carry Text (markdown or plain text). VIDEO sources carry
// either Text or time-coded Segments; when Segments are present, passages
// record the start time of the segment their text begins in.
type IngestRequest struct {
	Type     string              `json:"type"` // VIDEO or ARTICLE
	Title    string              `json:"title"`
	URL      string              `json:"url,omitempty"`
	Date     string              `json:"date,omitempty"` // ISO date (YYYY-MM-DD)
	Text     string              `json:"text,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
}

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	SourceID string `json:"sourceId"`
	Passages int    `json:"passages"`
	Embedded int    `json:"embedded"` // Passages that received a vector
}
