package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"learnpilot-rag/internal/model"
)

// ErrOCRUnavailable means no vision backend is configured, so image
// uploads cannot be transcribed right now.
var ErrOCRUnavailable = errors.New("ocr backend unavailable")

// ImageExtractor sends the image to a vision model and indexes the
// transcription it returns.
type ImageExtractor struct {
	ocr OCR
}

func (e *ImageExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	if e.ocr == nil {
		return nil, ErrOCRUnavailable
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image failed: %w", err)
	}

	mediaType := model.MediaPNG
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".jpg" || ext == ".jpeg" {
		mediaType = model.MediaJPEG
	}

	text, err := e.ocr.ExtractText(ctx, data, mediaType)
	if err != nil {
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	result := &Result{Blocks: nonEmpty([]Block{{Text: text, Label: "ocr"}})}
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}
