package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/scan-io-git/iacsec/internal/schema"
)

// SentinelCategory marks a file that was scanned but has no true positive.
const SentinelCategory = "none"

var csvHeader = []string{"file", "line", "category"}

// WriteCSV writes one row per true-positive finding and a "file,0,none" row for every file in
// inventory or records that has none. Rows are grouped by file; within a file, record order holds.
func WriteCSV(w io.Writer, records []schema.JoinedRecord, inventory []string) error {
	rows := make(map[string][][]string)
	for _, file := range inventory {
		if _, ok := rows[file]; !ok {
			rows[file] = nil
		}
	}
	for _, rec := range records {
		f := rec.Detection
		if !rec.Prediction.TruePositive() {
			if _, ok := rows[f.File()]; !ok {
				rows[f.File()] = nil
			}
			continue
		}
		rows[f.File()] = append(rows[f.File()], []string{f.File(), strconv.Itoa(f.Line()), string(f.Category())})
	}

	files := make([]string, 0, len(rows))
	for file := range rows {
		files = append(files, file)
	}
	sort.Strings(files)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, file := range files {
		fileRows := rows[file]
		if len(fileRows) == 0 {
			fileRows = [][]string{{file, "0", SentinelCategory}}
		}
		if err := cw.WriteAll(fileRows); err != nil {
			return fmt.Errorf("failed to write csv rows for %s: %w", file, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
