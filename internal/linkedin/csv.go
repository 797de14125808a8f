package linkedin

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header aliases seen across LinkedIn export revisions. Lowercased.
var headerAliases = map[string]string{
	"first name":  "first",
	"firstname":   "first",
	"middle name": "middle",
	"last name":   "last",
	"lastname":    "last",
	"position":    "position",
	"title":       "position",
	"company":     "company",
	"url":         "url",
	"profile url": "url",
}

// ReadCSV parses a LinkedIn Connections export into raw rows. The export
// prepends a free-text notes preamble before the header line, so records
// are skipped until a line containing both a first-name and a URL column
// is found. Rows shorter than the header are padded, longer ones truncated.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var columns map[int]string
	rows := make([]Row, 0)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if columns == nil {
			columns = headerColumns(record)
			continue
		}

		var row Row
		for i, value := range record {
			value = strings.TrimSpace(value)
			switch columns[i] {
			case "first":
				row.FirstName = value
			case "middle":
				row.MiddleName = value
			case "last":
				row.LastName = value
			case "position":
				row.Position = value
			case "company":
				row.Company = value
			case "url":
				row.ProfileURL = value
			}
		}
		if row.FirstName == "" && row.LastName == "" && row.ProfileURL == "" {
			continue
		}
		rows = append(rows, row)
	}

	if columns == nil {
		return nil, fmt.Errorf("no header row found")
	}
	return rows, nil
}

// headerColumns maps column indexes to canonical field names, or nil when
// the record is not the header row.
func headerColumns(record []string) map[int]string {
	mapped := make(map[int]string, len(record))
	hasFirst, hasURL := false, false
	for i, name := range record {
		field, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		mapped[i] = field
		if field == "first" {
			hasFirst = true
		}
		if field == "url" {
			hasURL = true
		}
	}
	if !hasFirst || !hasURL {
		return nil
	}
	return mapped
}
