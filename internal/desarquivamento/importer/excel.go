// Package importer reads intake spreadsheets into create commands.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"desarquivamento/internal/desarquivamento/models"
	dErrors "desarquivamento/pkg/domain-errors"
)

const (
	headerRowIndex = 1 // spreadsheet rows are 1-based
	maxRows        = 5000
)

// Column headers, matched case-insensitively.
const (
	colRequesterName      = "requester_name"
	colProcessNumber      = "process_number"
	colDocumentReference  = "document_reference"
	colDocumentType       = "document_type"
	colUrgent             = "urgent"
	colRequestedAt        = "requested_at"
	colDepartment         = "department"
	colResponsibleServer  = "responsible_server"
	colPurpose            = "purpose"
	colExtensionRequested = "extension_requested"
	colAssignedTo         = "assigned_to"
)

var requiredColumns = []string{colRequesterName, colDocumentReference, colDocumentType, colDepartment}

// Headers lists every recognised column in template order.
var Headers = []string{
	colRequesterName, colProcessNumber, colDocumentReference, colDocumentType, colUrgent,
	colRequestedAt, colDepartment, colResponsibleServer, colPurpose, colExtensionRequested, colAssignedTo,
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "02/01/2006", "01-02-06"}

// Result is a parsed spreadsheet: rows ready for import and rows rejected
// while parsing.
type Result struct {
	Rows   []models.ImportRow
	Errors []models.ImportRowError
}

// columnMap maps a header name to its 0-based column index.
type columnMap map[string]int

// Parse reads the first sheet of an xlsx workbook. Structural problems (not
// a workbook, missing required headers, too many rows) fail the whole file;
// cell problems reject only their row.
func Parse(r io.Reader) (*Result, error) {
	rows, err := openExcelRows(r)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "file is not a readable xlsx workbook")
	}
	if len(rows) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "spreadsheet is empty")
	}
	if len(rows)-headerRowIndex > maxRows {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("spreadsheet has more than %d rows", maxRows))
	}

	cols := mapColumns(rows[0])
	if err := validateRequiredColumns(cols); err != nil {
		return nil, err
	}

	result := &Result{Rows: []models.ImportRow{}, Errors: []models.ImportRowError{}}
	for i, cells := range rows[headerRowIndex:] {
		line := i + headerRowIndex + 1
		if isBlank(cells) {
			continue
		}
		cmd, err := parseRow(cols, cells)
		if err != nil {
			result.Errors = append(result.Errors, models.ImportRowError{
				Row:               line,
				DocumentReference: cell(cells, cols, colDocumentReference),
				Code:              string(dErrors.CodeOf(err)),
				Message:           err.Error(),
			})
			continue
		}
		result.Rows = append(result.Rows, models.ImportRow{Line: line, Command: cmd})
	}
	return result, nil
}

func openExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return [][]string{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}

func mapColumns(header []string) columnMap {
	cols := make(columnMap, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func validateRequiredColumns(cols columnMap) error {
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "missing required columns: "+strings.Join(missing, ", "))
	}
	return nil
}

func cell(cells []string, cols columnMap, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(cols columnMap, cells []string) (models.CreateCommand, error) {
	cmd := models.CreateCommand{
		RequesterName:     cell(cells, cols, colRequesterName),
		ProcessNumber:     cell(cells, cols, colProcessNumber),
		DocumentReference: cell(cells, cols, colDocumentReference),
		DocumentType:      cell(cells, cols, colDocumentType),
		Department:        cell(cells, cols, colDepartment),
		ResponsibleServer: cell(cells, cols, colResponsibleServer),
		Purpose:           cell(cells, cols, colPurpose),
	}

	var err error
	if cmd.Urgent, err = parseBool(cell(cells, cols, colUrgent), colUrgent); err != nil {
		return cmd, err
	}
	if cmd.ExtensionRequested, err = parseBool(cell(cells, cols, colExtensionRequested), colExtensionRequested); err != nil {
		return cmd, err
	}
	if raw := cell(cells, cols, colRequestedAt); raw != "" {
		at, err := parseDate(raw)
		if err != nil {
			return cmd, err
		}
		cmd.RequestedAt = &at
	}
	if raw := cell(cells, cols, colAssignedTo); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cmd, invalidCell(colAssignedTo, "must be a user id")
		}
		cmd.AssignedTo = &v
	}
	return cmd, nil
}

func parseBool(raw, column string) (bool, error) {
	switch strings.ToLower(raw) {
	case "", "false", "0", "no", "n", "não", "nao":
		return false, nil
	case "true", "1", "yes", "y", "sim", "s":
		return true, nil
	}
	return false, invalidCell(column, "must be yes or no")
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidCell(colRequestedAt, "must be a date like 2006-01-02")
}

func invalidCell(column, msg string) error {
	return dErrors.New(dErrors.CodeInvalidInput, column+" "+msg).With("field", column)
}

// Template returns an empty workbook with the header row filled in.
func Template() (*excelize.File, error) {
	return headerSheet("Desarquivamentos", Headers)
}

// headerSheet builds a workbook whose only sheet holds the header row. The
// file is closed when any step fails.
func headerSheet(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeHeaders(f, sheet, headers); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, h := range headers {
		ref, err := excelize.CoordinatesToCellName(i+1, headerRowIndex)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, ref, h); err != nil {
			return err
		}
	}
	return nil
}
