package repositories

import (
	"fmt"
	"strings"

	"sports_club_backend/pkg/utils"
)

// Row is one sheet row keyed by canonical column name.
type Row map[string]string

// sheetRow is a decoded row with the sheet row number it was read from.
type sheetRow[T any] struct {
	number int
	value  T
}

// Table maps a sheet to a strongly typed record. Column headers are matched
// case and space insensitively, so a sheet edited by hand keeps working.
type Table[T any] struct {
	store   TabularStore
	sheet   string
	columns []string
	key     string
	encode  func(T) Row
	decode  func(Row) (T, error)
}

func newTable[T any](store TabularStore, sheet string, columns []string, key string, encode func(T) Row, decode func(Row) (T, error)) *Table[T] {
	return &Table[T]{store: store, sheet: sheet, columns: columns, key: key, encode: encode, decode: decode}
}

// Exists reports whether the backing sheet exists.
func (t *Table[T]) Exists() (bool, error) {
	return t.store.SheetExists(t.sheet)
}

// Ensure creates the sheet, or adds missing schema columns to its header row.
func (t *Table[T]) Ensure() error {
	exists, err := t.store.SheetExists(t.sheet)
	if err != nil {
		return err
	}
	if !exists {
		return t.store.CreateSheet(t.sheet, t.columns)
	}
	rows, err := t.store.ReadSheet(t.sheet)
	if err != nil {
		return err
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[utils.NormalizeKey(h)] = true
	}
	updated := append([]string(nil), header...)
	for _, col := range t.columns {
		if !present[utils.NormalizeKey(col)] {
			updated = append(updated, col)
		}
	}
	if len(updated) == len(header) {
		return nil
	}
	return t.store.WriteRow(t.sheet, 1, updated)
}

// headerIndex maps canonical column names to their position in the header row.
func (t *Table[T]) headerIndex(header []string) map[string]int {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		k := utils.NormalizeKey(h)
		if _, dup := byKey[k]; !dup && k != "" {
			byKey[k] = i
		}
	}
	index := make(map[string]int, len(t.columns))
	for _, col := range t.columns {
		if i, ok := byKey[utils.NormalizeKey(col)]; ok {
			index[col] = i
		}
	}
	return index
}

func (t *Table[T]) load() ([]sheetRow[T], []string, error) {
	rows, err := t.store.ReadSheet(t.sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	header := rows[0]
	index := t.headerIndex(header)
	out := make([]sheetRow[T], 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(index))
		for col, pos := range index {
			if pos < len(cells) {
				row[col] = strings.TrimSpace(cells[pos])
			}
		}
		v, err := t.decode(row)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s row %d: %v", ErrDatabaseError, t.sheet, i+2, err)
		}
		out = append(out, sheetRow[T]{number: i + 2, value: v})
	}
	return out, header, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// All returns every record in sheet order. A missing sheet reads as empty.
func (t *Table[T]) All() ([]T, error) {
	exists, err := t.store.SheetExists(t.sheet)
	if err != nil || !exists {
		return nil, err
	}
	rows, _, err := t.load()
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.value
	}
	return out, nil
}

// Find returns the first record matching fn.
func (t *Table[T]) Find(fn func(T) bool) (T, error) {
	var zero T
	all, err := t.All()
	if err != nil {
		return zero, err
	}
	for _, v := range all {
		if fn(v) {
			return v, nil
		}
	}
	return zero, ErrNotFound
}

// NextID scans the key column and returns max+1. Non-numeric keys are ignored.
// Callers must hold the write gate between NextID and Append.
func (t *Table[T]) NextID() (string, error) {
	if err := t.Ensure(); err != nil {
		return "", err
	}
	rows, err := t.store.ReadSheet(t.sheet)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "1", nil
	}
	pos, ok := t.headerIndex(rows[0])[t.key]
	if !ok {
		return "1", nil
	}
	var max int64
	for _, cells := range rows[1:] {
		if pos >= len(cells) {
			continue
		}
		if n, err := utils.StrToInt64(cells[pos]); err == nil && n > max {
			max = n
		}
	}
	return utils.Int64ToStr(max + 1), nil
}

// Append writes v as a new row, aligned to the sheet's current header order.
func (t *Table[T]) Append(v T) error {
	if err := t.Ensure(); err != nil {
		return err
	}
	rows, err := t.store.ReadSheet(t.sheet)
	if err != nil {
		return err
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	return t.store.AppendRow(t.sheet, t.align(header, nil, t.encode(v)))
}

// Update overwrites the row whose key column equals key. Cells of columns the
// schema does not know are preserved.
func (t *Table[T]) Update(key string, v T) error {
	return t.update(func(r Row) bool { return r[t.key] == key }, v)
}

// UpdateWhere overwrites the first row for which match returns true.
func (t *Table[T]) UpdateWhere(match func(Row) bool, v T) error {
	return t.update(match, v)
}

func (t *Table[T]) update(match func(Row) bool, v T) error {
	exists, err := t.store.SheetExists(t.sheet)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if err := t.Ensure(); err != nil {
		return err
	}
	rows, err := t.store.ReadSheet(t.sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	header := rows[0]
	index := t.headerIndex(header)
	for i, cells := range rows[1:] {
		row := make(Row, len(index))
		for col, pos := range index {
			if pos < len(cells) {
				row[col] = strings.TrimSpace(cells[pos])
			}
		}
		if blank(cells) || !match(row) {
			continue
		}
		return t.store.WriteRow(t.sheet, i+2, t.align(header, cells, t.encode(v)))
	}
	return ErrNotFound
}

// align lays out row values in header order on top of existing cells.
func (t *Table[T]) align(header []string, existing []string, row Row) []string {
	index := t.headerIndex(header)
	width := len(header)
	if len(existing) > width {
		width = len(existing)
	}
	values := make([]string, width)
	copy(values, existing)
	for col, pos := range index {
		values[pos] = row[col]
	}
	return values
}
