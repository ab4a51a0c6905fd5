package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/scan-io-git/iacsec/pkg/shared"
)

// parseCSV reads GLITCH --csv output. Each row is path,line,code,detail; the detail column is
// GLITCH's unquoted representation of the offending element and may itself contain commas.
func parseCSV(r io.Reader) ([]shared.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []shared.RawRecord
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("row %d: expected at least 3 columns, got %d", row, len(fields))
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "path") {
			continue
		}

		rec := shared.RawRecord{
			Path: strings.TrimSpace(fields[0]),
			Code: strings.TrimSpace(fields[2]),
		}
		if len(fields) > 3 {
			rec.Detail = strings.TrimSpace(strings.Join(fields[3:], ","))
		}
		if value := strings.TrimSpace(fields[1]); value != "" {
			line, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid line %q: %w", row, value, err)
			}
			// GLITCH reports file-level smells on line -1.
			if line < 0 {
				line = 0
			}
			rec.Line = &line
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCSVFile(path string) ([]shared.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open glitch output %q: %w", path, err)
	}
	defer file.Close()

	records, err := parseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse glitch output %q: %w", path, err)
	}
	return records, nil
}
