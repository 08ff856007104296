package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/xuri/excelize/v2"
)

// Column names carried into dedicated index fields.
const (
	ColumnUserFlow = "User Flow"
	ColumnScreens  = "Screens"
	ColumnFeatures = "Features"
)

type Cell struct {
	Header string
	Value  string
}

// Row keeps cells in header order; empty cells are dropped.
type Row []Cell

func (r Row) Get(header string) string {
	for _, c := range r {
		if c.Header == header {
			return c.Value
		}
	}
	return ""
}

// Text is what gets embedded: every cell value joined by a space.
func (r Row) Text() string {
	vals := make([]string, 0, len(r))
	for _, c := range r {
		vals = append(vals, c.Value)
	}
	return strings.Join(vals, " ")
}

// MarshalJSON writes the row as an object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(c.Header)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ParseSheet reads the first worksheet of an xlsx workbook, or a csv file when name ends
// in .csv. The first row holds the column names.
func ParseSheet(name string, data []byte) ([]Row, error) {
	var grid [][]string
	var err error

	if strings.EqualFold(path.Ext(name), ".csv") {
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		grid, err = r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse csv %s: %w", name, err)
		}
	} else {
		grid, err = readFirstSheet(data)
		if err != nil {
			return nil, fmt.Errorf("parse workbook %s: %w", name, err)
		}
	}

	return gridToRows(grid), nil
}

func readFirstSheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func gridToRows(grid [][]string) []Row {
	if len(grid) == 0 {
		return nil
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for _, line := range grid[1:] {
		var row Row
		for i, v := range line {
			if i >= len(headers) || headers[i] == "" || v == "" {
				continue
			}
			row = append(row, Cell{Header: headers[i], Value: v})
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// Record is a document waiting for its embedding.
type Record struct {
	Doc  rag.Document
	Text string
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_\-=]`)

// DocumentID builds "<filename>-<n>" restricted to characters index keys accept.
func DocumentID(filename string, n int) string {
	return unsafeKeyChars.ReplaceAllString(fmt.Sprintf("%s-%d", filename, n), "_")
}

// BaseName drops the last extension of a file or blob name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// RowsToRecords maps spreadsheet rows onto indexable documents.
func RowsToRecords(filename string, rows []Row) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		content, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		records = append(records, Record{
			Doc: rag.Document{
				ID:       DocumentID(filename, i),
				Filename: filename,
				UserFlow: row.Get(ColumnUserFlow),
				Screens:  row.Get(ColumnScreens),
				Features: row.Get(ColumnFeatures),
				Content:  string(content),
			},
			Text: row.Text(),
		})
	}
	return records, nil
}
