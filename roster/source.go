package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxSheetRows caps how many rows are read from a legacy .xls sheet.
const maxSheetRows = 100000

// Row is one roster line as read from a spreadsheet, cells trimmed.
type Row struct {
	Line            int    `validate:"-"`
	StudentID       string `field:"student_id" validate:"required"`
	FirstName       string `field:"first_name" validate:"required"`
	LastName        string `field:"last_name" validate:"required"`
	MorningCourse   string `field:"morning_course" validate:"required"`
	AfternoonCourse string `field:"afternoon_course" validate:"required"`
}

// RowSource yields roster rows until it returns io.EOF.
type RowSource interface {
	Next() (Row, error)
}

func cellValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func buildRow(line int, record []string, cols map[Field]int) Row {
	return Row{
		Line:            line,
		StudentID:       cellValue(record, cols[FieldStudentID]),
		FirstName:       cellValue(record, cols[FieldFirstName]),
		LastName:        cellValue(record, cols[FieldLastName]),
		MorningCourse:   cellValue(record, cols[FieldMorningCourse]),
		AfternoonCourse: cellValue(record, cols[FieldAfternoonCourse]),
	}
}

type csvSource struct {
	r    *csv.Reader
	cols map[Field]int
}

// NewCSVSource reads the header immediately and fails on a missing column.
func NewCSVSource(r io.Reader, m Mapping) (RowSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	cols, err := m.columns(header)
	if err != nil {
		return nil, err
	}
	return &csvSource{r: cr, cols: cols}, nil
}

func (s *csvSource) Next() (Row, error) {
	for {
		record, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, fmt.Errorf("error reading csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := s.r.FieldPos(0)
		return buildRow(line, record, s.cols), nil
	}
}

// tableSource serves rows already loaded from a worksheet.
type tableSource struct {
	rows [][]string
	cols map[Field]int
	next int
}

// NewTableSource treats the first non-blank row as the header.
func NewTableSource(rows [][]string, m Mapping) (RowSource, error) {
	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptySource
	}
	cols, err := m.columns(rows[start])
	if err != nil {
		return nil, err
	}
	return &tableSource{rows: rows, cols: cols, next: start + 1}, nil
}

func (s *tableSource) Next() (Row, error) {
	for s.next < len(s.rows) {
		i := s.next
		s.next++
		if blank(s.rows[i]) {
			continue
		}
		return buildRow(i+1, s.rows[i], s.cols), nil
	}
	return Row{}, io.EOF
}

// OpenSource picks a reader by the uploaded file's extension.
func OpenSource(r io.Reader, filename string, m Mapping) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return NewCSVSource(r, m)
	case ".xlsx", ".xlsm":
		rows, err := readXLSX(r)
		if err != nil {
			return nil, err
		}
		return NewTableSource(rows, m)
	case ".xls":
		rows, err := readXLS(r)
		if err != nil {
			return nil, err
		}
		return NewTableSource(rows, m)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readXLSX(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("error opening xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrEmptySource
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

func readXLS(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("error opening xls: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrEmptySource
	}
	if workbook.NumSheets() > 1 {
		return nil, errors.New("multiple worksheets found; upload a file with a single sheet")
	}
	return workbook.ReadAllCells(maxSheetRows), nil
}
