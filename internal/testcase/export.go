package testcase

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hitoshi/testboard/internal/model"
)

// ExportHeader はエクスポートの列名。
var ExportHeader = []string{
	"Epic", "ID", "Description", "Expected Result", "Status", "Notes",
	"Evidence", "Application", "Module", "Test Type", "Actual Behavior", "Created Date",
}

// WriteCSV はエクスポート行をヘッダー付きのCSVとして書き出す。
func WriteCSV(w io.Writer, rows []model.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Epic, r.ID, r.Description, r.ExpectedResult, r.Status, r.Notes,
			r.Evidence, r.Application, r.Module, r.TestType, r.ActualBehavior, r.CreatedDate,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
