package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/scan-io-git/iacsec/internal/schema"
)

// maxLineSize bounds a single JSONL line when reading; snippets are short but evidence is open.
const maxLineSize = 4 * 1024 * 1024

// WriteJSONL writes one joined record per line, in the given order.
func WriteJSONL(w io.Writer, records []schema.JoinedRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record %d (%s): %w", i, rec.Detection.Location(), err)
		}
	}
	return nil
}

// ReadJSONL parses a stream written by WriteJSONL. Blank lines are skipped; unknown fields fail.
func ReadJSONL(r io.Reader) ([]schema.JoinedRecord, error) {
	var records []schema.JoinedRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec schema.JoinedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read joined records: %w", err)
	}
	return records, nil
}

// ReadJSONLFile opens path and parses it with ReadJSONL.
func ReadJSONLFile(path string) ([]schema.JoinedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSONL(f)
}
