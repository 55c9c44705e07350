// Package export renders attendance data to spreadsheets for instructors.
package export

import (
	"time"

	"github.com/xuri/excelize/v2"

	"accessx/internal/model"
)

const sheetName = "Attendance"

var headers = []string{"#", "Email", "Wallet", "Token ID", "Tx Hash", "Timestamp"}

// SessionSheet builds a spreadsheet with one row per attendance record.
func SessionSheet(sess model.Session, records []model.AttendanceRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	title := sess.Title + " (" + sess.Date + ")"
	if err := setRow(f, 1, []any{title}); err != nil {
		return nil, err
	}
	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := setRow(f, 2, headerRow); err != nil {
		return nil, err
	}
	for i, rec := range records {
		row := []any{
			i + 1,
			rec.Email,
			rec.WalletAddress,
			rec.TokenID,
			rec.TxHash,
			rec.Timestamp.Format(time.RFC3339),
		}
		if err := setRow(f, i+3, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}
