package extract

import (
	"context"
	"errors"
	"strings"

	"learnpilot-rag/internal/model"
)

// ErrNoExtractableText means the file opened fine but yielded nothing
// worth indexing. The caller marks the document failed with this reason.
var ErrNoExtractableText = errors.New("no extractable text")

// Block is one provenance-preserving unit of extracted text: a PDF page,
// a slide, a spreadsheet sheet, or a whole plain-text body.
type Block struct {
	Text    string
	Ordinal int
	Label   string
}

// Result carries the extracted blocks plus non-fatal warnings, e.g. a
// single unreadable page in an otherwise healthy PDF.
type Result struct {
	Blocks   []Block
	Warnings []string
}

// Extractor turns a staged file into text blocks.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
}

// OCR transcribes an image. Implemented by the vision model client;
// nil when no vision backend is configured.
type OCR interface {
	ExtractText(ctx context.Context, data []byte, mediaType string) (string, error)
}

// Registry maps canonical media types to their extractors.
type Registry struct {
	byType map[string]Extractor
}

func NewRegistry(ocr OCR) *Registry {
	text := &TextExtractor{}
	md := &MarkdownExtractor{}
	img := &ImageExtractor{ocr: ocr}

	return &Registry{byType: map[string]Extractor{
		model.MediaPDF:  &PDFExtractor{},
		model.MediaDOCX: &DocxExtractor{},
		model.MediaPPTX: &PptxExtractor{},
		model.MediaXLSX: &SheetExtractor{},
		model.MediaXLS:  &LegacySheetExtractor{},
		model.MediaCSV:  &CSVExtractor{},
		model.MediaText: text,
		model.MediaMD:   md,
		model.MediaPNG:  img,
		model.MediaJPEG: img,
	}}
}

func (r *Registry) ForMediaType(mediaType string) (Extractor, bool) {
	e, ok := r.byType[mediaType]
	return e, ok
}

// MediaTypes returns every media type the registry can extract. The
// stager uses this as its upload allow-list, so validation and
// extraction can never drift apart.
func (r *Registry) MediaTypes() []string {
	types := make([]string, 0, len(r.byType))
	for mt := range r.byType {
		types = append(types, mt)
	}
	return types
}

// nonEmpty drops blocks that are blank after trimming and renumbers
// ordinals so downstream chunking sees a dense sequence.
func nonEmpty(blocks []Block) []Block {
	out := blocks[:0]
	n := 0
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		b.Ordinal = n
		out = append(out, b)
		n++
	}
	return out
}
