package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"learnpilot-rag/internal/model"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestTextExtractor(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "line one\nline two\n")

	res, err := (&TextExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(res.Blocks))
	}
	if res.Blocks[0].Text != "line one\nline two\n" {
		t.Fatalf("block text = %q", res.Blocks[0].Text)
	}
}

func TestTextExtractorEmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.txt", "   \n\t\n")

	_, err := (&TextExtractor{}).Extract(context.Background(), path)
	if !errors.Is(err, ErrNoExtractableText) {
		t.Fatalf("Extract error = %v, want ErrNoExtractableText", err)
	}
}

func TestCSVExtractor(t *testing.T) {
	path := writeTempFile(t, "grades.csv", "name,score\nalice,91\nbob,84\n")

	res, err := (&CSVExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "name\tscore\nalice\t91\nbob\t84\n"
	if res.Blocks[0].Text != want {
		t.Fatalf("block text = %q, want %q", res.Blocks[0].Text, want)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestCSVExtractorRaggedRows(t *testing.T) {
	path := writeTempFile(t, "ragged.csv", "a,b,c\nd,e\nf\n")

	res, err := (&CSVExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "a\tb\tc\nd\te\nf\n"
	if res.Blocks[0].Text != want {
		t.Fatalf("block text = %q, want %q", res.Blocks[0].Text, want)
	}
}

func TestMarkdownExtractorStripsSyntax(t *testing.T) {
	path := writeTempFile(t, "readme.md", "# Title\n\nSome *emphasized* prose.\n\n- item one\n- item two\n")

	res, err := (&MarkdownExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	text := res.Blocks[0].Text
	for _, want := range []string{"Title", "emphasized", "item one", "item two"} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text %q missing %q", text, want)
		}
	}
	for _, marker := range []string{"# ", "*", "- "} {
		if strings.Contains(text, marker) {
			t.Errorf("extracted text %q still contains markdown marker %q", text, marker)
		}
	}
}

func TestImageExtractorWithoutOCR(t *testing.T) {
	path := writeTempFile(t, "scan.png", "not-really-a-png")

	_, err := (&ImageExtractor{}).Extract(context.Background(), path)
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Fatalf("Extract error = %v, want ErrOCRUnavailable", err)
	}
}

type fakeOCR struct {
	text string
	got  string
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte, mediaType string) (string, error) {
	f.got = mediaType
	return f.text, nil
}

func TestImageExtractorUsesOCR(t *testing.T) {
	path := writeTempFile(t, "scan.jpg", "jpeg-bytes")
	ocr := &fakeOCR{text: "transcribed words"}

	res, err := (&ImageExtractor{ocr: ocr}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Blocks[0].Text != "transcribed words" {
		t.Fatalf("block text = %q", res.Blocks[0].Text)
	}
	if ocr.got != model.MediaJPEG {
		t.Fatalf("ocr media type = %q, want %q", ocr.got, model.MediaJPEG)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(nil)

	if _, ok := reg.ForMediaType(model.MediaPDF); !ok {
		t.Fatal("registry is missing the pdf extractor")
	}
	if _, ok := reg.ForMediaType("application/x-msdownload"); ok {
		t.Fatal("registry returned an extractor for an executable")
	}
	if len(reg.MediaTypes()) != 10 {
		t.Fatalf("registry lists %d media types, want 10", len(reg.MediaTypes()))
	}
}

func TestTagText(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{"plain", "<a:t>hello</a:t>", "hello "},
		{"attributes", `<w:t xml:space="preserve">hi there</w:t>`, "hi there "},
		{"self closing skipped", "<w:t/><w:t>x</w:t>", "x "},
		{"longer tag name skipped", "<a:tab/><a:t>y</a:t>", "y "},
		{"entities", "<a:t>a &amp; b</a:t>", "a & b "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open := "<a:t"
			closing := "</a:t>"
			if tt.name == "attributes" || tt.name == "self closing skipped" {
				open, closing = "<w:t", "</w:t>"
			}
			if got := tagText(tt.xml, open, closing); got != tt.want {
				t.Errorf("tagText = %q, want %q", got, tt.want)
			}
		})
	}
}
