package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

type TextExtractor struct{}

func (e *TextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file failed: %w", err)
	}

	result := &Result{Blocks: nonEmpty([]Block{{Text: string(data), Label: "body"}})}
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}

// MarkdownExtractor parses markdown and indexes the plain prose, so
// formatting syntax never pollutes embeddings.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown file failed: %w", err)
	}

	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(data))

	var sb strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				sb.WriteString("\n")
			}
			if _, isHeading := n.(*ast.Heading); isHeading {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.CodeBlock:
			writeCodeLines(&sb, t, data)
		case *ast.FencedCodeBlock:
			writeCodeLines(&sb, t, data)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown ast failed: %w", err)
	}

	result := &Result{Blocks: nonEmpty([]Block{{Text: sb.String(), Label: "body"}})}
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}

func writeCodeLines(sb *strings.Builder, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	sb.WriteString("\n")
}
