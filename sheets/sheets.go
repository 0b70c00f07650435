// Package sheets reads the manually maintained reference workbook: one tab
// per team, two header rows (category over stat name), data rows keyed by
// the quarter label in the first column. Read-only; nothing here feeds the
// pipeline.
package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"clutchtime/utils"

	"github.com/xuri/excelize/v2"
)

type ColumnKey struct {
	Category string
	Stat     string
}

type Sheet struct {
	Name    string
	columns map[ColumnKey]int
	order   []ColumnKey
	rows    map[string][]string
	labels  []string
}

type Workbook struct {
	tabs  map[string]*Sheet
	order []string
}

func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	defer f.Close()

	wb := Workbook{tabs: map[string]*Sheet{}}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, utils.ErrorWithTrace(err)
		}
		sheet, err := parseSheet(name, rows)
		if err != nil {
			return nil, err
		}
		wb.tabs[name] = sheet
		wb.order = append(wb.order, name)
	}
	return &wb, nil
}

func parseSheet(name string, rows [][]string) (*Sheet, error) {
	if len(rows) < 2 {
		return nil, utils.ErrorWithTrace(fmt.Errorf("tab %q: want two header rows, found %d rows", name, len(rows)))
	}
	categories, stats := rows[0], rows[1]

	sheet := Sheet{
		Name:    name,
		columns: map[ColumnKey]int{},
		rows:    map[string][]string{},
	}
	// Category cells are forward-filled: a blank inherits the last named
	// category, which is how merged two-level headers come across.
	category := ""
	for col := 1; col < len(stats); col++ {
		if col < len(categories) && strings.TrimSpace(categories[col]) != "" {
			category = strings.TrimSpace(categories[col])
		}
		stat := strings.TrimSpace(stats[col])
		if stat == "" {
			continue
		}
		key := ColumnKey{Category: category, Stat: stat}
		if _, exists := sheet.columns[key]; exists {
			return nil, utils.ErrorWithTrace(fmt.Errorf("tab %q: duplicate column %s/%s", name, key.Category, key.Stat))
		}
		sheet.columns[key] = col
		sheet.order = append(sheet.order, key)
	}
	if len(sheet.order) == 0 {
		return nil, utils.ErrorWithTrace(fmt.Errorf("tab %q: no labeled columns", name))
	}

	for i := 2; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		label := strings.TrimSpace(row[0])
		if _, exists := sheet.rows[label]; exists {
			return nil, utils.ErrorWithTrace(fmt.Errorf("tab %q: duplicate row label %q", name, label))
		}
		sheet.rows[label] = row
		sheet.labels = append(sheet.labels, label)
	}
	return &sheet, nil
}

func (w *Workbook) Tabs() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

func (w *Workbook) Sheet(tab string) (*Sheet, error) {
	s, ok := w.tabs[tab]
	if !ok {
		return nil, utils.ErrorWithTrace(fmt.Errorf("no tab %q in workbook", tab))
	}
	return s, nil
}

func (s *Sheet) Columns() []ColumnKey {
	out := make([]ColumnKey, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Sheet) RowLabels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Value looks up one cell by quarter row label and (category, stat) column
// pair. Missing labels and cells are errors, not blanks.
func (s *Sheet) Value(rowLabel, category, stat string) (string, error) {
	row, ok := s.rows[rowLabel]
	if !ok {
		return "", utils.ErrorWithTrace(fmt.Errorf("tab %q: no row labeled %q", s.Name, rowLabel))
	}
	col, ok := s.columns[ColumnKey{Category: category, Stat: stat}]
	if !ok {
		return "", utils.ErrorWithTrace(fmt.Errorf("tab %q: no column %s/%s", s.Name, category, stat))
	}
	if col >= len(row) || strings.TrimSpace(row[col]) == "" {
		return "", utils.ErrorWithTrace(fmt.Errorf("tab %q: empty cell at row %q column %s/%s", s.Name, rowLabel, category, stat))
	}
	return strings.TrimSpace(row[col]), nil
}

func (s *Sheet) Float(rowLabel, category, stat string) (float64, error) {
	raw, err := s.Value(rowLabel, category, stat)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
	if err != nil {
		return 0, utils.ErrorWithTrace(fmt.Errorf("tab %q: cell at row %q column %s/%s is not numeric: %w", s.Name, rowLabel, category, stat, err))
	}
	return v, nil
}
