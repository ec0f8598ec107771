package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// SheetExtractor renders each OOXML workbook sheet as tab-separated
// rows, one block per sheet.
type SheetExtractor struct{}

func (e *SheetExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet failed: %w", err)
	}
	defer f.Close()

	result := &Result{}
	for _, sheetName := range f.GetSheetList() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rows, rowErr := f.GetRows(sheetName)
		if rowErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("sheet %q: %v", sheetName, rowErr))
			continue
		}
		var sb strings.Builder
		sb.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		result.Blocks = append(result.Blocks, Block{
			Text:  sb.String(),
			Label: "sheet " + sheetName,
		})
	}

	result.Blocks = dropHeaderOnly(result.Blocks)
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}

// LegacySheetExtractor reads BIFF workbooks (.xls), which excelize does
// not understand. Output matches SheetExtractor so downstream chunking
// treats both workbook generations the same.
type LegacySheetExtractor struct{}

func (e *LegacySheetExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy xls failed: %w", err)
	}

	result := &Result{}
	for i := 0; i < wb.NumSheets(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var sb strings.Builder
		sb.WriteString("Sheet: " + sheet.Name + "\n")
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol()-row.FirstCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			sb.WriteString(strings.Join(cells, "\t"))
			sb.WriteString("\n")
		}
		result.Blocks = append(result.Blocks, Block{
			Text:  sb.String(),
			Label: "sheet " + sheet.Name,
		})
	}

	result.Blocks = dropHeaderOnly(result.Blocks)
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}

// dropHeaderOnly removes sheets whose only content is the sheet header line.
func dropHeaderOnly(blocks []Block) []Block {
	kept := blocks[:0]
	n := 0
	for _, b := range blocks {
		lines := strings.SplitN(strings.TrimSpace(b.Text), "\n", 2)
		if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
			continue
		}
		b.Ordinal = n
		kept = append(kept, b)
		n++
	}
	return kept
}

// CSVExtractor reads the file as one tab-joined table. Ragged rows are
// fine; a parse error mid-file keeps what was read and records a warning.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv failed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &Result{}
	var sb strings.Builder
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("csv parse stopped early: %v", readErr))
			break
		}
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteString("\n")
	}

	result.Blocks = nonEmpty([]Block{{Text: sb.String(), Label: "table"}})
	if len(result.Blocks) == 0 {
		return nil, ErrNoExtractableText
	}
	return result, nil
}
