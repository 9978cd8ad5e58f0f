package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var table = Table{
	Title:   "Attendance 2024-01-01..2024-01-02",
	Headers: []string{"Employee Code", "2024-01-02", "2024-01-01", "Total"},
	Rows: [][]string{
		{"EMP001", "8h", "8h 30min", "16h 30min"},
		{"EMP002, Jr", "", "0h", "0h"},
	},
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, table))

	assert.Equal(t,
		"Employee Code,2024-01-02,2024-01-01,Total\n"+
			"EMP001,8h,8h 30min,16h 30min\n"+
			"\"EMP002, Jr\",,0h,0h\n",
		buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, table))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "Attendance 2024-01-01..2024-01-", sheet)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, table.Headers, rows[0])
	assert.Equal(t, table.Rows[0], rows[1])
	assert.Equal(t, "EMP002, Jr", rows[2][0])
	assert.Equal(t, "0h", rows[2][3])
}
