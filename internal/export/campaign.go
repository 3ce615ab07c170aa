// Package export converts campaign exports into spreadsheet workbooks.
package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/practice-audit/internal/model"
)

// Table is a parsed campaign export: one header row and its ad rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Delimiter guesses the field separator from the header line: tab, then
// semicolon when it outnumbers commas, otherwise comma.
func Delimiter(text string) rune {
	header, _, _ := strings.Cut(text, "\n")
	switch {
	case strings.Contains(header, "\t"):
		return '\t'
	case strings.Count(header, ";") > strings.Count(header, ","):
		return ';'
	default:
		return ','
	}
}

// ParseCampaign splits a campaign export into a Table. Rows may be ragged;
// blank lines are skipped.
func ParseCampaign(c model.CampaignExport) (*Table, error) {
	text := strings.TrimSpace(c.String())
	if text == "" {
		return nil, eris.New("export: campaign is empty")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = Delimiter(text)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var t Table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "export: read campaign row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		if t.Header == nil {
			t.Header = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	return &t, nil
}
