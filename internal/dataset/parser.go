package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	apperrors "expodash/internal/errors"
)

// Date layouts seen across shipment workbooks. Tried in order after
// the Excel serial form.
var dateLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02/01/2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"01-02-06",
}

// ParseFile reads an export shipment workbook from disk.
func ParseFile(filePath string) (*Dataset, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()
	return parseWorkbook(f, filePath)
}

// Parse reads an export shipment workbook from a stream, typically an
// upload body. name is kept for display only.
func Parse(r io.Reader, name string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()
	return parseWorkbook(f, name)
}

func parseWorkbook(f *excelize.File, name string) (*Dataset, error) {
	// Pick the first sheet whose header row maps at least one
	// recognized column. Most workbooks have a single sheet.
	var rows [][]string
	var sheetName string
	var headerRow int
	var columnMap map[Column]int

	for _, sheet := range f.GetSheetList() {
		candidate, err := f.GetRows(sheet)
		if err != nil || len(candidate) == 0 {
			continue
		}
		if hr, cm := findHeaderRow(candidate); cm != nil {
			rows = candidate
			sheetName = sheet
			headerRow = hr
			columnMap = cm
			break
		}
	}

	if columnMap == nil {
		return nil, apperrors.NewParsingError("no sheet with a recognizable header row", nil)
	}

	slog.Debug("parsing shipment sheet",
		slog.String("sheet", sheetName),
		slog.Int("header_row", headerRow),
		slog.Int("total_rows", len(rows)))

	headers := rows[headerRow]
	ds := &Dataset{
		ID:         uuid.New().String(),
		Name:       name,
		UploadedAt: time.Now(),
		Headers:    headers,
		columns:    columnMap,
	}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		s, err := parseShipment(row, columnMap, i+1)
		if err != nil {
			return nil, err
		}

		// Pad short rows so the raw view stays rectangular.
		raw := make([]string, len(headers))
		for j := range headers {
			if j < len(row) {
				raw[j] = row[j]
			}
		}

		ds.Rows = append(ds.Rows, raw)
		ds.Shipments = append(ds.Shipments, s)
	}

	slog.Info("parsed shipment workbook",
		slog.String("name", name),
		slog.String("dataset_id", ds.ID),
		slog.Int("rows", len(ds.Shipments)),
		slog.Int("columns", len(columnMap)))

	return ds, nil
}

// findHeaderRow scans the first rows of a sheet for one that maps at
// least one recognized column. Shipment exports often stack title and
// filter banners above the real header.
func findHeaderRow(rows [][]string) (int, map[Column]int) {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		cm := mapColumns(rows[i])
		if len(cm) > 0 {
			return i, cm
		}
	}
	return -1, nil
}

// mapColumns matches header cells against known column aliases. The
// match is forgiving about case, underscores and extra spaces.
func mapColumns(header []string) map[Column]int {
	cm := make(map[Column]int)
	for idx, cell := range header {
		norm := normalizeHeader(cell)
		if norm == "" {
			continue
		}
		c, ok := matchColumn(norm)
		if !ok {
			continue
		}
		if _, dup := cm[c]; !dup {
			cm[c] = idx
		}
	}
	return cm
}

func normalizeHeader(cell string) string {
	s := strings.ToUpper(strings.TrimSpace(cell))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	return s
}

func matchColumn(norm string) (Column, bool) {
	switch {
	case norm == "SB DATE" || norm == "SBDATE" || norm == "SHIPPING BILL DATE":
		return ColumnDate, true
	case strings.Contains(norm, "LOADING"):
		return ColumnLoading, true
	case strings.Contains(norm, "DESTINATION"):
		return ColumnDestination, true
	case strings.Contains(norm, "DISCHARGE"):
		return ColumnDischarge, true
	case strings.Contains(norm, "HSN") || strings.Contains(norm, "DESCRIPTION") || norm == "PRODUCT":
		return ColumnProduct, true
	case strings.Contains(norm, "FOB"):
		return ColumnFOB, true
	case norm == "QUANTITY" || norm == "QTY":
		return ColumnQuantity, true
	}
	return "", false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseShipment(row []string, cm map[Column]int, rowNum int) (Shipment, error) {
	var s Shipment

	if idx, ok := cm[ColumnDate]; ok {
		cell := cellAt(row, idx)
		if cell != "" {
			d, err := parseDate(cell)
			if err != nil {
				return s, apperrors.NewDataTypeError(
					fmt.Sprintf("row %d: cannot read %q as a date", rowNum, cell), err).
					WithContext("column", string(ColumnDate)).
					WithContext("row", rowNum)
			}
			s.Date = d
		}
	}

	s.Loading = cellValue(row, cm, ColumnLoading)
	s.Destination = cellValue(row, cm, ColumnDestination)
	s.Discharge = cellValue(row, cm, ColumnDischarge)
	s.Product = cellValue(row, cm, ColumnProduct)

	if idx, ok := cm[ColumnFOB]; ok {
		v, err := parseNumber(cellAt(row, idx))
		if err != nil {
			return s, apperrors.NewDataTypeError(
				fmt.Sprintf("row %d: cannot read %q as a number", rowNum, cellAt(row, idx)), err).
				WithContext("column", string(ColumnFOB)).
				WithContext("row", rowNum)
		}
		s.FOB = v
	}

	if idx, ok := cm[ColumnQuantity]; ok {
		v, err := parseNumber(cellAt(row, idx))
		if err != nil {
			return s, apperrors.NewDataTypeError(
				fmt.Sprintf("row %d: cannot read %q as a number", rowNum, cellAt(row, idx)), err).
				WithContext("column", string(ColumnQuantity)).
				WithContext("row", rowNum)
		}
		s.Quantity = v
	}

	return s, nil
}

func cellValue(row []string, cm map[Column]int, c Column) string {
	idx, ok := cm[c]
	if !ok {
		return ""
	}
	return cellAt(row, idx)
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseDate accepts Excel serial dates and the common text layouts,
// normalized to midnight UTC so range filtering compares dates only.
func parseDate(cell string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return truncateToDay(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return truncateToDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", cell)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseNumber reads a float cell, tolerating thousand separators and
// currency prefixes. Empty cells count as zero.
func parseNumber(cell string) (float64, error) {
	if cell == "" {
		return 0, nil
	}
	clean := strings.ReplaceAll(cell, ",", "")
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return 0, nil
	}
	return strconv.ParseFloat(clean, 64)
}
