// Package sources reads the raw spreadsheet and csv exports the pipeline
// starts from.
package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
)

// Compile-time interface check
var _ interfaces.SourceLoader = (*Loader)(nil)

// LedgerSeparator is the field separator of the ledger app's exports.
const LedgerSeparator = ','

// Loader reads csv and xlsx files into raw tables.
type Loader struct {
	sep    rune
	logger *common.Logger
}

// NewLoader creates a loader for csv files separated by sep (";" if empty).
func NewLoader(sep string, logger *common.Logger) *Loader {
	r := ';'
	if sep != "" {
		r = []rune(sep)[0]
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Loader{sep: r, logger: logger}
}

// LoadTable reads path by extension.
func (l *Loader) LoadTable(path, sheet string) (models.RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return l.loadWorkbook(path, sheet)
	case ".csv", ".txt":
		return l.loadCSV(path, l.sep)
	}
	return models.RawTable{}, fmt.Errorf("unsupported source file %s", path)
}

func (l *Loader) loadCSV(path string, sep rune) (models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, sep)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	l.logger.Debug().Str("path", path).Int("rows", len(t.Rows)).Msg("Source loaded")
	return t, nil
}

// ReadCSV parses a headed csv stream. Ragged rows are tolerated.
func ReadCSV(r io.Reader, sep rune) (models.RawTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.RawTable{}, nil
	}
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read header: %w", err)
	}
	records, err := reader.ReadAll()
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read records: %w", err)
	}
	return models.NewRawTable(header, records), nil
}

func (l *Loader) loadWorkbook(path, sheet string) (models.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return models.RawTable{}, nil
	}
	t := models.NewRawTable(rows[0], rows[1:])
	l.logger.Debug().Str("path", path).Str("sheet", sheet).Int("rows", len(t.Rows)).Msg("Workbook loaded")
	return t, nil
}

// LoadDir reads every csv file of dir in name order. Monthly ledger exports
// are comma separated regardless of the loader's separator.
func (l *Loader) LoadDir(dir string) ([]models.RawTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]models.RawTable, 0, len(names))
	for _, name := range names {
		t, err := l.loadCSV(filepath.Join(dir, name), LedgerSeparator)
		if err != nil {
			return nil, err
		}
		l.logger.Info().Str("file", name).Int("transactions", len(t.Rows)).Msg("Ledger export loaded")
		out = append(out, t)
	}
	return out, nil
}

// WriteTable writes table as csv with the loader's separator. The file is
// written to a temp file and renamed into place.
func (l *Loader) WriteTable(path string, table models.RawTable) error {
	return WriteCSVFile(path, l.sep, table.Columns, table.Records())
}

// WriteCSVFile writes header and records atomically.
func WriteCSVFile(path string, sep rune, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	w := csv.NewWriter(tmpFile)
	w.Comma = sep
	err = w.Write(header)
	if err == nil {
		err = w.WriteAll(records)
	}
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
