package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"
	"recruitment-backend/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	ExportXLSX = "xlsx"
	ExportCSV  = "csv"
)

var exportHeaders = []string{
	"PERSON ID", "FIRST NAME", "LAST NAME", "PERSON NUMBER", "EMAIL",
	"STATUS", "COMPETENCES", "AVAILABILITY",
}

// ExportUnhandled renders the recruiter work queue as a spreadsheet or CSV.
func (uc *applicationUsecase) ExportUnhandled(ctx context.Context, format string) (*domain.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportXLSX
	}
	if format != ExportXLSX && format != ExportCSV {
		return nil, apperror.Validation("Invalid export format", domain.ErrValidation,
			[]string{fmt.Sprintf("format: must be one of: %s, %s", ExportXLSX, ExportCSV)})
	}

	list, err := uc.repo.ListUnhandled(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	rows := make([][]string, 0, len(list))
	for _, app := range list {
		rows = append(rows, exportRow(app))
	}

	stamp := time.Now().Format("20060102_150405")
	var file *domain.ExportFile
	switch format {
	case ExportCSV:
		content, err := exportCSV(rows)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		file = &domain.ExportFile{
			Filename:    fmt.Sprintf("unhandled_applications_%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}
	default:
		content, err := exportExcel(rows)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		file = &domain.ExportFile{
			Filename:    fmt.Sprintf("unhandled_applications_%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}
	}

	logger.Log.Info("application queue exported", "format", format, "rows", len(rows))
	return file, nil
}

func exportRow(app domain.ApplicationOverview) []string {
	competences := make([]string, 0, len(app.Competences))
	for _, c := range app.Competences {
		competences = append(competences, fmt.Sprintf("%s (%s years)", c.Type, strconv.FormatFloat(c.YearsOfExperience, 'f', 2, 64)))
	}
	periods := make([]string, 0, len(app.Availability))
	for _, a := range app.Availability {
		periods = append(periods, fmt.Sprintf("%s to %s", a.From, a.To))
	}
	return []string{
		strconv.FormatInt(app.PersonID, 10),
		neutralizeFormula(app.FirstName),
		neutralizeFormula(app.LastName),
		neutralizeFormula(app.PersonNumber),
		neutralizeFormula(app.Email),
		string(app.Status),
		strings.Join(competences, "; "),
		strings.Join(periods, "; "),
	}
}

// neutralizeFormula quotes applicant-supplied text that a spreadsheet would
// otherwise evaluate as a formula.
func neutralizeFormula(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func exportExcel(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Applications"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	endCell, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	f.SetCellStyle(sheetName, "A1", endCell, headerStyle)

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range exportHeaders {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 22)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func exportCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}
