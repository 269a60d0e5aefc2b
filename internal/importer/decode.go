package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// acceptedMIMETypes are the declared content types the import endpoint takes.
var acceptedMIMETypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// supportedFormat reports whether the upload is an accepted spreadsheet/CSV
// form, and whether it should be decoded as CSV (as opposed to a workbook).
func supportedFormat(mimeType, fileName string) (supported, isCSV bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case mimeType == "text/csv" || ext == ".csv":
		return true, true
	case acceptedMIMETypes[mimeType] || ext == ".xls" || ext == ".xlsx":
		return true, false
	default:
		return false, false
	}
}

// decode converts file bytes into header-keyed records. Decoding runs in a
// separate goroutine so the caller's deadline bounds it even though neither
// encoding/csv nor excelize take a context; a pathological file costs a
// leaked goroutine at worst, not a stuck request.
func decode(ctx context.Context, data []byte, isCSV bool) ([]Record, error) {
	type result struct {
		records []Record
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		if isCSV {
			r.records, r.err = decodeCSV(data)
		} else {
			r.records, r.err = decodeWorkbook(data)
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeCSV reads the whole CSV into records keyed by the header row.
// Fully empty lines are skipped; rows keep their original 1-based position
// so error reports line up with the source file.
func decodeCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	headers := trimAll(header)

	var records []Record
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++
		if rowEmpty(row) {
			continue
		}
		records = append(records, makeRecord(line, headers, row))
	}
	return records, nil
}

// decodeWorkbook reads the first sheet of an Excel workbook.
func decodeWorkbook(data []byte) ([]Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	headers := trimAll(rows[0])

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if rowEmpty(row) {
			continue
		}
		records = append(records, makeRecord(i+2, headers, row))
	}
	return records, nil
}

func makeRecord(rowNum int, headers []string, row []string) Record {
	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			fields[h] = row[i]
		} else {
			fields[h] = ""
		}
	}
	return Record{Row: rowNum, Headers: headers, Fields: fields}
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func rowEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
