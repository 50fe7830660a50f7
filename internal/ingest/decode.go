package ingest

import (
	"bytes"
	"encoding/csv"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readText reads a file and returns UTF-8 bytes. A UTF-8 BOM is stripped;
// content that is not valid UTF-8 is re-decoded as Windows-1252, the
// encoding the spreadsheet exports in the wild actually use.
func readText(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	enc, err := htmlindex.Get("windows-1252")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: windows-1252 decoder")
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s as windows-1252", path)
	}
	return decoded, nil
}

// table is a parsed tabular file: a header row plus data rows, with
// case-insensitive column lookup by mapped field key.
type table struct {
	index map[string]int // field key -> column
	rows  [][]string
}

// get returns the named field from a row, empty if the column is absent.
func (t *table) get(row []string, key string) string {
	i, ok := t.index[key]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// newTable maps header labels through the section's field map and indexes
// the columns. Unknown labels keep their canonicalized form so extra
// export columns are harmless.
func newTable(header []string, rows [][]string, section map[string]string) *table {
	t := &table{index: make(map[string]int, len(header)), rows: rows}
	for i, label := range header {
		key := resolveLabel(section, label)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

// readCSVTable parses a CSV file into a table.
func readCSVTable(path string, section map[string]string) (*table, error) {
	data, err := readText(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse csv %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("ingest: %s has no header row", path)
	}
	return newTable(records[0], records[1:], section), nil
}

// readXLSXTable parses the first sheet of an XLSX file into a table.
func readXLSXTable(path string, section map[string]string) (*table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: %s has no header row", path)
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return newTable(rows[0], rows[1:], section), nil
}

// readTable dispatches on extension for the tabular formats.
func readTable(path string, section map[string]string) (*table, error) {
	f, err := format(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case "csv":
		return readCSVTable(path, section)
	case "xlsx":
		return readXLSXTable(path, section)
	default:
		return nil, eris.Errorf("ingest: %s is not a tabular file", path)
	}
}
