package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseCSV reads a comma separated body and cleans it per src.
// Blank lines are skipped; short rows are dropped.
func ParseCSV(src Source, body []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source %q: read csv: %w", src.Name, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, rec)
	}
	return clean(src, rows)
}

// ParseHTMLTable reads the first table matching src.Selector. Header cells
// come from th elements when src.Header is set.
func ParseHTMLTable(src Source, body []byte) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("source %q: parse html: %w", src.Name, err)
	}
	sel := src.Selector
	if sel == "" {
		sel = "table"
	}
	table := doc.Find(sel).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("source %q: no element matches %q", src.Name, sel)
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.Join(strings.Fields(cell.Text()), " "))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return clean(src, rows)
}

func clean(src Source, rows [][]string) (*Table, error) {
	header := src.Columns
	if src.Header {
		if len(rows) == 0 {
			return nil, fmt.Errorf("source %q: %w: missing header", src.Name, ErrNoRows)
		}
		header, rows = rows[0], rows[1:]
	}
	c, err := newCleaner(src, header)
	if err != nil {
		return nil, err
	}
	return c.table(rows)
}
