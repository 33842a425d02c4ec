package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser parses claims from CSV with a header row.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed claims.
// Expected columns: title, and optionally description, category, priority,
// media_url, submitter_id.
func (p *CSVParser) Parse(r io.Reader) ([]RawClaim, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	if _, ok := colIndex["title"]; !ok {
		return nil, fmt.Errorf("missing required column: title")
	}

	return colIndex, nil
}

func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawClaim, error) {
	var claims []RawClaim
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		claims = append(claims, RawClaim{
			SubmitterID: getColumn(record, colIndex, "submitter_id"),
			Title:       getColumn(record, colIndex, "title"),
			Description: getColumn(record, colIndex, "description"),
			Category:    getColumn(record, colIndex, "category"),
			MediaURL:    getColumn(record, colIndex, "media_url"),
			Priority:    getColumn(record, colIndex, "priority"),
			LineNum:     lineNum,
		})
	}

	return claims, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
