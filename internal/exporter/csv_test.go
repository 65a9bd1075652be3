package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expodash/internal/analytics"
	"expodash/internal/config"
	"expodash/internal/dataset"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.ExportsDir = filepath.Join(dir, "exports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	return cfg
}

func testView() *dataset.View {
	headers := []string{"SB DATE", "PORT OF LOADING", "FOB"}
	rows := [][]string{
		{"15-01-2024", "Chennai", "100"},
		{"16-01-2024", "Mumbai", "200"},
		{"17-01-2024", "Chennai", "300"},
	}
	shipments := make([]dataset.Shipment, len(rows))
	ds := dataset.New("id", "t.xlsx", headers, rows, shipments,
		map[dataset.Column]int{dataset.ColumnDate: 0, dataset.ColumnLoading: 1, dataset.ColumnFOB: 2})
	return &dataset.View{Dataset: ds, Indices: []int{0, 2}}
}

func TestWriteViewStreamsFilteredRows(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteView(&buf, testView(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, utf8BOM))

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, utf8BOM)))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"SB DATE", "PORT OF LOADING", "FOB"}, records[0])
	assert.Equal(t, []string{"15-01-2024", "Chennai", "100"}, records[1])
	assert.Equal(t, []string{"17-01-2024", "Chennai", "300"}, records[2])
}

func TestWriteViewWithoutBOM(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteView(&buf, testView(), false)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
}

func TestWriteSimpleCSV(t *testing.T) {
	cfg := testConfig(t)
	w := NewCSVWriter(cfg)

	err := w.WriteSimpleCSV("report.csv", []string{"a", "b"}, [][]string{{"1", "2"}, {"3", "4"}})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.GetExportPath("report.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Contains(t, string(data), "a,b")
	assert.Contains(t, string(data), "3,4")
}

func TestWriteCSVAppend(t *testing.T) {
	cfg := testConfig(t)
	w := NewCSVWriter(cfg)

	require.NoError(t, w.WriteSimpleCSV("append.csv", []string{"x"}, [][]string{{"1"}}))
	require.NoError(t, w.WriteCSV("append.csv", WriteOptions{Records: [][]string{{"2"}}, Append: true}))

	data, err := os.ReadFile(cfg.GetExportPath("append.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(data), string(utf8BOM))), "\n")
	assert.Len(t, lines, 3)
}

func TestDailyShipmentRecords(t *testing.T) {
	headers, records := DailyShipmentRecords([]analytics.DateCount{
		{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Count: 3},
	})
	assert.Equal(t, []string{"date", "shipments"}, headers)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"2024-01-15", "3"}, records[0])
}

func TestProductMetricRecords(t *testing.T) {
	headers, records := ProductMetricRecords([]analytics.ProductMetric{
		{Product: "Granite", Value: 1234.5},
	}, "fob")
	assert.Equal(t, []string{"product", "fob"}, headers)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Granite", "1234.5"}, records[0])
}

func TestPortTrendRecords(t *testing.T) {
	_, records := PortTrendRecords([]analytics.PortTrendPoint{
		{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Port: "Chennai", FOB: 100},
	})
	require.Len(t, records, 1)
	assert.Equal(t, []string{"2024-01-15", "Chennai", "100"}, records[0])
}

func TestProductTrendRecords(t *testing.T) {
	_, records := ProductTrendRecords([]analytics.ProductTrendPoint{
		{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Product: "Tea", Count: 2},
	})
	require.Len(t, records, 1)
	assert.Equal(t, []string{"2024-01-15", "Tea", "2"}, records[0])
}
