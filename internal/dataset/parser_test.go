package dataset

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "expodash/internal/errors"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", axis, cell))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func shipmentHeader() []interface{} {
	return []interface{}{"SB DATE", "PORT OF LOADING", "COUNTRY OF DESTINATION", "PORT OF DISCHARGE", "HSN_DESCRIPTION", "FOB", "QUANTITY"}
}

func TestParseTypedColumns(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		shipmentHeader(),
		{"15-01-2024", "Chennai", "USA", "New York", "Granite slabs", "12,500.50", "240"},
		{"16-01-2024", "Mumbai", "Germany", "Hamburg", "Cotton yarn", "8000", "120.5"},
	})

	ds, err := Parse(r, "jan.xlsx")
	require.NoError(t, err)

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "jan.xlsx", ds.Name)
	assert.Equal(t, 2, ds.Len())

	for _, c := range AllColumns {
		assert.True(t, ds.HasColumn(c), "column %s should be present", c)
	}

	first := ds.Shipments[0]
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "Chennai", first.Loading)
	assert.Equal(t, "USA", first.Destination)
	assert.Equal(t, "New York", first.Discharge)
	assert.Equal(t, "Granite slabs", first.Product)
	assert.InDelta(t, 12500.50, first.FOB, 0.001)
	assert.InDelta(t, 240, first.Quantity, 0.001)

	// Raw rows stay parallel to typed shipments.
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Chennai", ds.Rows[0][1])
}

func TestParseMissingColumnsIsNotAnError(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"PORT OF LOADING", "FOB"},
		{"Chennai", "100"},
		{"Mumbai", "200"},
	})

	ds, err := Parse(r, "partial.xlsx")
	require.NoError(t, err)

	assert.True(t, ds.HasColumn(ColumnLoading))
	assert.True(t, ds.HasColumn(ColumnFOB))
	assert.False(t, ds.HasColumn(ColumnDate))
	assert.False(t, ds.HasColumn(ColumnProduct))
	assert.Equal(t, 2, ds.Len())

	_, _, ok := ds.DateBounds()
	assert.False(t, ok)
}

func TestParseEmptyDateCellKeepsRow(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		shipmentHeader(),
		{"15-01-2024", "Chennai", "USA", "New York", "Granite slabs", "100", "1"},
		{"", "Mumbai", "Germany", "Hamburg", "Cotton yarn", "200", "2"},
	})

	ds, err := Parse(r, "undated.xlsx")
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	// An empty date cell is not a type error; the row survives with a
	// zero date and is simply absent from the date bounds.
	assert.True(t, ds.Shipments[1].Date.IsZero())
	assert.Equal(t, "Mumbai", ds.Shipments[1].Loading)

	min, max, ok := ds.DateBounds()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), min)
	assert.Equal(t, max, min)
}

func TestParseHeaderBelowBanner(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"EXPORT SHIPMENT REPORT"},
		{},
		shipmentHeader(),
		{"15-01-2024", "Chennai", "USA", "New York", "Granite slabs", "100", "1"},
	})

	ds, err := Parse(r, "banner.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, "Chennai", ds.Shipments[0].Loading)
}

func TestParseSkipsBlankRows(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		shipmentHeader(),
		{"15-01-2024", "Chennai", "USA", "New York", "Granite slabs", "100", "1"},
		{"", "", "", "", "", "", ""},
		{"16-01-2024", "Mumbai", "Germany", "Hamburg", "Cotton yarn", "200", "2"},
	})

	ds, err := Parse(r, "gaps.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestParseBadNumberSurfacesDataTypeError(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		shipmentHeader(),
		{"15-01-2024", "Chennai", "USA", "New York", "Granite slabs", "not-a-number", "1"},
	})

	_, err := Parse(r, "bad.xlsx")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeDataType, appErr.Type)
	assert.Equal(t, string(ColumnFOB), appErr.Context["column"])
}

func TestParseBadDateSurfacesDataTypeError(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		shipmentHeader(),
		{"someday", "Chennai", "USA", "New York", "Granite slabs", "100", "1"},
	})

	_, err := Parse(r, "bad-date.xlsx")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeDataType, appErr.Type)
}

func TestParseNoRecognizableHeader(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"alpha", "beta"},
		{"1", "2"},
	})

	_, err := Parse(r, "noise.xlsx")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		cell string
		want time.Time
	}{
		{"15-01-2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2-Jan-2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15 13:45:00", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := parseDate(tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateExcelSerial(t *testing.T) {
	// 45306 is 2024-01-15 in the 1900 date system.
	got, err := parseDate("45306")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		cell    string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"100", 100, false},
		{"1,234,567.89", 1234567.89, false},
		{"$1,000", 1000, false},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.cell), func(t *testing.T) {
			got, err := parseNumber(tt.cell)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestMatchColumnAliases(t *testing.T) {
	tests := []struct {
		header string
		want   Column
	}{
		{"SB DATE", ColumnDate},
		{"sb_date", ColumnDate},
		{"Port of Loading", ColumnLoading},
		{"COUNTRY OF DESTINATION", ColumnDestination},
		{"Port Of Discharge", ColumnDischarge},
		{"HSN_DESCRIPTION", ColumnProduct},
		{"FOB", ColumnFOB},
		{"FOB (USD)", ColumnFOB},
		{"QUANTITY", ColumnQuantity},
		{"QTY", ColumnQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := matchColumn(normalizeHeader(tt.header))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
