package repositories

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// TabularStore is the spreadsheet a club's data lives in. Sheets are addressed
// by name, rows by their 1-based sheet row number; row 1 is the header row.
type TabularStore interface {
	ID() string
	SheetExists(sheet string) (bool, error)
	CreateSheet(sheet string, headers []string) error
	ReadSheet(sheet string) ([][]string, error)
	AppendRow(sheet string, values []string) error
	WriteRow(sheet string, rowNumber int, values []string) error
}

// Workbook is a TabularStore backed by an .xlsx file.
// A Workbook with an empty path lives in memory only.
type Workbook struct {
	mu   sync.Mutex // excelize files are not safe for concurrent use
	id   string
	path string
	file *excelize.File
}

const defaultSheet = "Sheet1"

// NewMemoryWorkbook creates an empty workbook that is never written to disk.
func NewMemoryWorkbook(id string) *Workbook {
	return &Workbook{id: id, file: excelize.NewFile()}
}

// OpenWorkbook opens the workbook at path, creating an empty one when the file does not exist.
func OpenWorkbook(id, path string) (*Workbook, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		w := &Workbook{id: id, path: path, file: excelize.NewFile()}
		if err := w.save(); err != nil {
			return nil, err
		}
		return w, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook %s: %v", ErrDatabaseError, path, err)
	}
	return &Workbook{id: id, path: path, file: f}, nil
}

// ID returns the spreadsheet identifier.
func (w *Workbook) ID() string { return w.id }

// Close releases the underlying file.
func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *Workbook) save() error {
	if w.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("%w: creating workbook directory: %v", ErrDatabaseError, err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("%w: saving workbook %s: %v", ErrDatabaseError, w.path, err)
	}
	return nil
}

func (w *Workbook) sheetExists(sheet string) (bool, error) {
	idx, err := w.file.GetSheetIndex(sheet)
	if err != nil {
		return false, fmt.Errorf("%w: looking up sheet %s: %v", ErrDatabaseError, sheet, err)
	}
	return idx >= 0, nil
}

// SheetExists reports whether the workbook has a sheet with the given name.
func (w *Workbook) SheetExists(sheet string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sheetExists(sheet)
}

// CreateSheet adds a sheet with a header row. The untouched default sheet of
// a fresh workbook is removed once a real sheet exists.
func (w *Workbook) CreateSheet(sheet string, headers []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	exists, err := w.sheetExists(sheet)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := w.file.NewSheet(sheet); err != nil {
			return fmt.Errorf("%w: creating sheet %s: %v", ErrDatabaseError, sheet, err)
		}
	}
	if err := w.writeRow(sheet, 1, headers); err != nil {
		return err
	}
	if sheet != defaultSheet {
		if rows, err := w.file.GetRows(defaultSheet); err == nil && len(rows) == 0 {
			if err := w.file.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("%w: removing default sheet: %v", ErrDatabaseError, err)
			}
		}
	}
	return w.save()
}

// ReadSheet returns every row of the sheet, header row included, with raw
// (unformatted) cell values.
func (w *Workbook) ReadSheet(sheet string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	exists, err := w.sheetExists(sheet)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %s: %v", ErrDatabaseError, sheet, err)
	}
	return rows, nil
}

// AppendRow writes values into the first row after the last non-empty row.
func (w *Workbook) AppendRow(sheet string, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("%w: reading sheet %s: %v", ErrDatabaseError, sheet, err)
	}
	if err := w.writeRow(sheet, len(rows)+1, values); err != nil {
		return err
	}
	return w.save()
}

// WriteRow overwrites the cells of an existing row.
func (w *Workbook) WriteRow(sheet string, rowNumber int, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rowNumber < 1 {
		return fmt.Errorf("%w: invalid row number %d", ErrDatabaseError, rowNumber)
	}
	if err := w.writeRow(sheet, rowNumber, values); err != nil {
		return err
	}
	return w.save()
}

func (w *Workbook) writeRow(sheet string, rowNumber int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNumber)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if err := w.file.SetCellStr(sheet, cell, v); err != nil {
			return fmt.Errorf("%w: writing %s!%s: %v", ErrDatabaseError, sheet, cell, err)
		}
	}
	return nil
}

var spreadsheetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,127}$`)

// WorkbookPool opens club workbooks from a data directory and keeps them open.
type WorkbookPool struct {
	dir  string
	mu   sync.Mutex
	open map[string]*Workbook
}

// NewWorkbookPool creates a pool rooted at dir. An empty dir keeps every
// workbook in memory.
func NewWorkbookPool(dir string) *WorkbookPool {
	return &WorkbookPool{dir: dir, open: make(map[string]*Workbook)}
}

// Get returns the workbook for spreadsheetID, opening or creating it on first use.
func (p *WorkbookPool) Get(spreadsheetID string) (*Workbook, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if !spreadsheetIDPattern.MatchString(spreadsheetID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpreadsheetID, spreadsheetID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.open[spreadsheetID]; ok {
		return w, nil
	}
	var (
		w   *Workbook
		err error
	)
	if p.dir == "" {
		w = NewMemoryWorkbook(spreadsheetID)
	} else {
		w, err = OpenWorkbook(spreadsheetID, filepath.Join(p.dir, spreadsheetID+".xlsx"))
		if err != nil {
			return nil, err
		}
	}
	p.open[spreadsheetID] = w
	return w, nil
}

// Exists reports whether spreadsheetID is already open in the pool or
// present in the data directory.
func (p *WorkbookPool) Exists(spreadsheetID string) (bool, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if !spreadsheetIDPattern.MatchString(spreadsheetID) {
		return false, fmt.Errorf("%w: %q", ErrInvalidSpreadsheetID, spreadsheetID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.open[spreadsheetID]; ok {
		return true, nil
	}
	if p.dir == "" {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(p.dir, spreadsheetID+".xlsx"))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: checking workbook %s: %v", ErrDatabaseError, spreadsheetID, err)
	}
}

// Close closes every open workbook.
func (p *WorkbookPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for id, w := range p.open {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing workbook %s: %w", id, err))
		}
		delete(p.open, id)
	}
	return errors.Join(errs...)
}
