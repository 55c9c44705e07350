package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessx/internal/model"
)

func TestSessionSheet(t *testing.T) {
	sess := model.Session{Title: "CS101", Date: "2025-01-10"}
	records := []model.AttendanceRecord{
		{
			Email:         "alice@example.edu",
			WalletAddress: "0xaaa",
			TokenID:       "123456",
			TxHash:        "0xfeed",
			Timestamp:     time.Date(2025, 1, 10, 9, 3, 0, 0, time.UTC),
		},
		{
			Email:         "bob@example.edu",
			WalletAddress: "0xbbb",
			TokenID:       "654321",
			TxHash:        "0xbeef",
			Timestamp:     time.Date(2025, 1, 10, 9, 4, 0, 0, time.UTC),
		},
	}

	f, err := SessionSheet(sess, records)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "CS101 (2025-01-10)", title)

	header, err := f.GetCellValue(sheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Email", header)

	email, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.edu", email)

	token, err := f.GetCellValue(sheetName, "D4")
	require.NoError(t, err)
	assert.Equal(t, "654321", token)

	ts, err := f.GetCellValue(sheetName, "F3")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10T09:03:00Z", ts)
}

func TestSessionSheetEmpty(t *testing.T) {
	f, err := SessionSheet(model.Session{Title: "Empty", Date: "2025-01-10"}, nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2, "title and header rows only")
	assert.Equal(t, headers, rows[1])
}
