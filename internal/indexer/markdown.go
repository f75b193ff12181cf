package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParser strips articles down to plain text before chunking, so
// formatting syntax never leaks into passages or embeddings.
var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// PlainText parses markdown content and returns its text content with block
// structure flattened to newlines. Plain text passes through unchanged apart
// from whitespace normalization.
func PlainText(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	doc := markdownParser.Parser().Parse(text.NewReader(content))

	var builder strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(content))
			if node.HardLineBreak() || node.SoftLineBreak() {
				builder.WriteByte('\n')
			}
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock:
			writeLines(&builder, node, content)
		case *ast.FencedCodeBlock:
			writeLines(&builder, node, content)
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			breakBlock(&builder)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}

// writeLines copies a code block's raw lines into the builder.
func writeLines(builder *strings.Builder, n ast.Node, content []byte) {
	breakBlock(builder)
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(content))
	}
}

// breakBlock separates block elements with a newline.
func breakBlock(builder *strings.Builder) {
	if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") {
		builder.WriteByte('\n')
	}
}
