// -----------------------------------------------------------------------
// Index Reader - Load tabular rows from .xlsx, .csv or .yaml files
// -----------------------------------------------------------------------

package index

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/quire/internal/common"
)

// Row is one data row together with its line number as the user sees it
type Row struct {
	Number int
	Cells  []string
}

// Table is the raw content of an index or fallback file
type Table struct {
	Source string
	Rows   []Row
}

// yamlTable is the YAML layout: a list of rows, each a list of cells
type yamlTable struct {
	Rows [][]interface{} `yaml:"rows"`
}

// ReadTable reads a tabular file. Spreadsheet and CSV files carry a header row, which is
// dropped; every data row is padded to the header width so trailing empty cells survive.
func ReadTable(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &common.IOError{Op: "open index", Path: path, Missing: errors.Is(err, os.ErrNotExist), Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".yaml", ".yml":
		return readYAML(path)
	default:
		return nil, &common.FormatError{Source: path, Reason: "unsupported index format (want .xlsx, .csv, .tsv or .yaml)"}
	}
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &common.FormatError{Source: path, Reason: "spreadsheet has no sheets"}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	return withHeader(path, rows), nil
}

func readDelimited(path string, comma rune) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &common.IOError{Op: "open index", Path: path, Err: err}
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &common.FormatError{Source: path, Reason: err.Error()}
		}
		rows = append(rows, rec)
	}
	return withHeader(path, rows), nil
}

func readYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &common.IOError{Op: "read index", Path: path, Err: err}
	}
	var doc yamlTable
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &common.FormatError{Source: path, Reason: err.Error()}
	}

	table := &Table{Source: path}
	for n, row := range doc.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		table.Rows = append(table.Rows, Row{Number: n + 1, Cells: cells})
	}
	return table, nil
}

func withHeader(path string, rows [][]string) *Table {
	table := &Table{Source: path}
	if len(rows) == 0 {
		return table
	}
	width := len(rows[0])
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		for len(row) < width {
			row = append(row, "")
		}
		table.Rows = append(table.Rows, Row{Number: i + 2, Cells: row})
	}
	return table
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
