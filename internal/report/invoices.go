// Package report builds spreadsheet exports.
package report

import (
	"fmt"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
)

const (
	InvoicesSheet = "Invoices"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// InvoiceRow is one exported invoice line.
type InvoiceRow struct {
	ID        string
	CreatedAt time.Time
	Patient   string
	Amount    float64
	Status    string
	PaidAt    *time.Time
	PaymentID string
}

var invoiceHeaders = []string{"ID", "Created", "Patient", "Amount", "Status", "Paid at", "Payment ID"}

// InvoicesXLSX renders rows into a single sheet workbook. Times are
// written in loc.
func InvoicesXLSX(rows []InvoiceRow, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	file := excelize.NewFile()
	index := file.NewSheet(InvoicesSheet)
	file.SetActiveSheet(index)
	file.DeleteSheet("Sheet1")

	for i, h := range invoiceHeaders {
		file.SetCellValue(InvoicesSheet, cell(i, 1), h)
	}
	file.SetColWidth(InvoicesSheet, "A", "A", 38)
	file.SetColWidth(InvoicesSheet, "B", "C", 22)
	file.SetColWidth(InvoicesSheet, "F", "G", 22)

	var total float64
	for i, r := range rows {
		line := i + 2
		paidAt := ""
		if r.PaidAt != nil {
			paidAt = r.PaidAt.In(loc).Format("2006-01-02 15:04")
		}

		file.SetCellValue(InvoicesSheet, cell(0, line), r.ID)
		file.SetCellValue(InvoicesSheet, cell(1, line), r.CreatedAt.In(loc).Format("2006-01-02 15:04"))
		file.SetCellValue(InvoicesSheet, cell(2, line), r.Patient)
		file.SetCellValue(InvoicesSheet, cell(3, line), r.Amount)
		file.SetCellValue(InvoicesSheet, cell(4, line), r.Status)
		file.SetCellValue(InvoicesSheet, cell(5, line), paidAt)
		file.SetCellValue(InvoicesSheet, cell(6, line), r.PaymentID)
		total += r.Amount
	}

	footer := len(rows) + 2
	file.SetCellValue(InvoicesSheet, cell(2, footer), "Total")
	file.SetCellValue(InvoicesSheet, cell(3, footer), total)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cell converts a zero based column and a one based row to A1 notation.
// Only the first 26 columns are needed.
func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
