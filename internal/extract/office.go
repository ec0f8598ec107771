package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DocxExtractor pulls text runs out of word/document.xml. Paragraph
// boundaries (</w:p>) become newlines so chunking can break cleanly.
type DocxExtractor struct{}

func (e *DocxExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("open docx failed: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()

	var sb strings.Builder
	for _, para := range strings.Split(content, "</w:p>") {
		text := tagText(para, "<w:t", "</w:t>")
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n")
	}

	result := &Result{Blocks: nonEmpty([]Block{{Text: sb.String(), Label: "body"}})}
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}

// PptxExtractor walks the slide XML entries of the pptx zip archive.
// Each slide becomes its own block so answers can cite the slide.
type PptxExtractor struct{}

func (e *PptxExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open pptx failed: %w", err)
	}
	defer zr.Close()

	var slides []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f.Name)
		}
	}
	// Zip entry order is not slide order, and neither is lexicographic
	// order once a deck reaches slide10.xml. Order by the numeric suffix.
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i]) < slideNumber(slides[j])
	})

	result := &Result{}
	for i, name := range slides {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		num := slideNumber(name)
		if num == 0 {
			num = i + 1
		}
		text, readErr := readZipEntry(zr, name)
		if readErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("slide %d: %v", num, readErr))
			continue
		}
		result.Blocks = append(result.Blocks, Block{
			Text:  tagText(text, "<a:t", "</a:t>"),
			Label: fmt.Sprintf("slide %d", num),
		})
	}

	result.Blocks = nonEmpty(result.Blocks)
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}

// slideNumber parses N out of "ppt/slides/slideN.xml". Names that do not
// carry a number sort first and fall back to their position.
func slideNumber(name string) int {
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func readZipEntry(zr *zip.ReadCloser, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("entry %q not found", name)
}

// tagText collects the character data of every occurrence of an XML tag,
// e.g. openTag "<a:t" / closeTag "</a:t>". The open tag may carry
// attributes; matching stops at the first ">" after it.
func tagText(xmlContent, openTag, closeTag string) string {
	var sb strings.Builder
	rest := xmlContent
	for {
		start := strings.Index(rest, openTag)
		if start < 0 {
			break
		}
		rest = rest[start+len(openTag):]
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		// Self-closing tag or a longer tag name that merely shares the prefix.
		if strings.HasPrefix(rest[:gt+1], "/") || (gt > 0 && rest[0] != ' ' && rest[0] != '>' && rest[0] != '/') {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closeTag)
		if end < 0 {
			break
		}
		sb.WriteString(rest[:end])
		sb.WriteString(" ")
		rest = rest[end+len(closeTag):]
	}
	return unescapeXML(sb.String())
}

var xmlReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

func unescapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
