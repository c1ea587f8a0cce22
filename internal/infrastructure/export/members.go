// Package export renders the member roster as an Excel workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/orris-inc/gatekeeper/internal/application/stats"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

const (
	SheetName   = "Members"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var MemberHeader = []string{
	"User ID",
	"Username",
	"Name",
	"Stage",
	"Approved At",
	"Consent Signed At",
	"Paid Until",
	"Subscription",
	"Payments",
	"Joined",
}

var columnWidths = []float64{14, 20, 28, 24, 18, 18, 14, 14, 10, 18}

// FileName returns the download name for an export taken at t.
func FileName(t time.Time) string {
	return "members-" + biztime.FormatInBizTimezone(t, "20060102-1504") + ".xlsx"
}

// MembersWorkbook writes rows into a single-sheet workbook.
func MembersWorkbook(rows []stats.MemberRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range MemberHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.UserID,
			r.Username,
			r.DisplayName,
			string(r.Stage),
			formatTime(r.ApprovedAt),
			formatTime(r.ConsentCompletedAt),
			formatDate(r.ActiveUntil),
			r.SubscriptionStatus,
			r.TotalPayments,
			biztime.FormatInBizTimezone(r.CreatedAt, "02/01/2006 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return biztime.FormatInBizTimezone(*t, "02/01/2006 15:04")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return biztime.FormatDate(*t)
}
