package sources

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/hospital-flow/internal/benchmark"
)

var errEmptyTable = errors.New("no header row found")

// DecodeCSV parses a CSV publication. The first record is the header;
// ragged rows are padded to the header width.
func DecodeCSV(r io.Reader) (*benchmark.Table, error) {
	bufReader := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("decode csv: %w", errEmptyTable)
	}
	if err != nil {
		return nil, fmt.Errorf("decode csv header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode csv row %d: %w", len(rows)+2, err)
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return benchmark.NewTable(header, rows), nil
}

// DecodeWorkbook parses an XLSX publication. The sheet is the first whose
// name contains "provider", else the first sheet. Title rows above the
// header are skipped: the header is the first row accepted by isHeader.
// When isHeader is nil or accepts no row, it is the first row with at
// least two non-empty cells.
func DecodeWorkbook(data []byte, isHeader func([]string) bool) (*benchmark.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := pickName(sheets, func(name string) bool {
		return strings.Contains(strings.ToLower(name), "provider")
	})

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	headerAt := -1
	if isHeader != nil {
		for i, r := range rows {
			if nonEmpty(r) >= 2 && isHeader(r) {
				headerAt = i
				break
			}
		}
	}
	if headerAt < 0 {
		for i, r := range rows {
			if nonEmpty(r) >= 2 {
				headerAt = i
				break
			}
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, errEmptyTable)
	}

	var body [][]string
	for _, r := range rows[headerAt+1:] {
		if !isBlank(r) {
			body = append(body, r)
		}
	}
	return benchmark.NewTable(rows[headerAt], body), nil
}

// DecodeZip opens a ZIP archive and decodes the first member whose name
// contains "provider" and ends in ".csv", else the first member.
func DecodeZip(data []byte) (*benchmark.Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var members []*zip.File
	var names []string
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		members = append(members, f)
		names = append(names, f.Name)
	}
	if len(members) == 0 {
		return nil, errors.New("zip archive is empty")
	}

	name := pickName(names, func(n string) bool {
		ln := strings.ToLower(n)
		return strings.Contains(ln, "provider") && strings.HasSuffix(ln, ".csv")
	})
	var member *zip.File
	for _, f := range members {
		if f.Name == name {
			member = f
			break
		}
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip member %q: %w", name, err)
	}
	defer rc.Close()

	t, err := DecodeCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("zip member %q: %w", name, err)
	}
	return t, nil
}

// pickName returns the first name accepted by match, else the first name.
func pickName(names []string, match func(string) bool) string {
	for _, n := range names {
		if match(n) {
			return n
		}
	}
	return names[0]
}

func nonEmpty(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func isBlank(row []string) bool {
	return nonEmpty(row) == 0
}
