package rag

import (
	"fmt"
	"strings"

	"archivist-ai/internal/storage"
)

// assembleContext builds the citation-addressable context block and the
// ordered citation list from ranked candidates.
//
// Citation indices are assigned first-seen by source identity, so multiple
// passages from one source share a number. Identity is the source's stable
// generated id — never url or title, which are user-editable and collide
// across sources lacking a URL.
//
// Each passage is prefixed with its citation tag ([[n]]), the same token the
// prompt instructs the model to cite with. Both return values are valid, and
// possibly empty, for an empty input.
func assembleContext(ranked []Candidate) (string, []storage.SourceRecord) {
	var cited []storage.SourceRecord
	indexBySource := make(map[string]int)

	var builder strings.Builder
	for _, c := range ranked {
		idx, ok := indexBySource[c.Source.ID]
		if !ok {
			cited = append(cited, c.Source)
			idx = len(cited)
			indexBySource[c.Source.ID] = idx
		}

		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		fmt.Fprintf(&builder, "[[%d]] %s", idx, c.Text)
	}

	return builder.String(), cited
}
