// Package tabular reads uploaded schedules (CSV, XLSX, legacy XLS) into the
// header/row shape the SOV import expects, and writes XLSX exports
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/application/port"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/sovimport"
)

// Reader implements port.TableReader
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a reader that dispatches on file extension
func NewReader(logger *zap.Logger) port.TableReader {
	return &Reader{logger: logger}
}

// Read parses data according to fileName's extension. The first row is the
// header row; every later row becomes a header-keyed map
func (r *Reader) Read(ctx context.Context, fileName string, data []byte) (*sovimport.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		raw [][]string
		err error
	)
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt":
		raw, err = readDelimited(data, ',')
	case ".tsv":
		raw, err = readDelimited(data, '\t')
	case ".xlsx", ".xlsm":
		raw, err = readXLSX(data)
	case ".xls":
		raw, err = readXLS(data)
	default:
		return nil, errs.NewValidationError([]errs.Problem{
			errs.GeneralProblem("file", fmt.Sprintf("unsupported file type %q", ext)),
		})
	}
	if err != nil {
		r.logger.Info("Unreadable import file", zap.String("file", fileName), zap.Error(err))
		return nil, errs.NewValidationError([]errs.Problem{
			errs.GeneralProblem("file", fmt.Sprintf("could not read %s: %v", fileName, err)),
		})
	}

	return toTable(raw), nil
}

func readDelimited(data []byte, comma rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	rd := csv.NewReader(bytes.NewReader(data))
	rd.Comma = comma
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true
	rd.TrimLeadingSpace = true
	return rd.ReadAll()
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheet)
}

func readXLS(data []byte) ([][]string, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if book.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// toTable keys every data row by header. Duplicate or blank headers get a
// positional name so no column is silently dropped
func toTable(raw [][]string) *sovimport.Table {
	table := &sovimport.Table{Rows: []map[string]string{}}
	if len(raw) == 0 {
		table.Headers = []string{}
		return table
	}

	seen := make(map[string]int)
	for i, h := range raw[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s (%d)", h, n+1)
		} else {
			seen[h] = 1
		}
		table.Headers = append(table.Headers, h)
	}

	for _, cells := range raw[1:] {
		row := make(map[string]string, len(table.Headers))
		for i, h := range table.Headers {
			if i < len(cells) {
				row[h] = strings.TrimSpace(cells[i])
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
