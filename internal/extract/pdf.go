package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (res *Result, err error) {
	// The pdf package panics on some malformed files; recover so a bad
	// upload surfaces as an extraction error, not a crashed worker.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("parse pdf failed: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf failed: %w", err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf failed: %w", err)
	}

	result := &Result{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d is unreadable", i))
			continue
		}
		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: %v", i, pageErr))
			continue
		}
		result.Blocks = append(result.Blocks, Block{
			Text:  text,
			Label: fmt.Sprintf("page %d", i),
		})
	}

	result.Blocks = nonEmpty(result.Blocks)
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}
