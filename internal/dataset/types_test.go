package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleDataset() *Dataset {
	shipments := []Shipment{
		{Date: day(2024, 1, 15), Loading: "Chennai", Destination: "USA", Discharge: "New York", Product: "Granite slabs", FOB: 100, Quantity: 10},
		{Date: day(2024, 1, 10), Loading: "Mumbai", Destination: "Germany", Discharge: "Hamburg", Product: "Cotton yarn", FOB: 200, Quantity: 20},
		{Date: day(2024, 1, 20), Loading: "Chennai", Destination: "USA", Discharge: "Boston", Product: "Granite slabs", FOB: 300, Quantity: 30},
	}
	headers := []string{"SB DATE", "PORT OF LOADING", "COUNTRY OF DESTINATION", "PORT OF DISCHARGE", "HSN_DESCRIPTION", "FOB", "QUANTITY"}
	rows := [][]string{
		{"15-01-2024", "Chennai", "USA", "New York", "Granite slabs", "100", "10"},
		{"10-01-2024", "Mumbai", "Germany", "Hamburg", "Cotton yarn", "200", "20"},
		{"20-01-2024", "Chennai", "USA", "Boston", "Granite slabs", "300", "30"},
	}
	columns := map[Column]int{
		ColumnDate: 0, ColumnLoading: 1, ColumnDestination: 2,
		ColumnDischarge: 3, ColumnProduct: 4, ColumnFOB: 5, ColumnQuantity: 6,
	}
	return New("test-id", "test.xlsx", headers, rows, shipments, columns)
}

func TestDateBounds(t *testing.T) {
	ds := sampleDataset()
	min, max, ok := ds.DateBounds()
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 10), min)
	assert.Equal(t, day(2024, 1, 20), max)
}

func TestDateBoundsEmptyDataset(t *testing.T) {
	ds := New("id", "empty.xlsx", nil, nil, nil, map[Column]int{ColumnDate: 0})
	_, _, ok := ds.DateBounds()
	assert.False(t, ok)
}

func TestDateBoundsIgnoreUndatedRows(t *testing.T) {
	shipments := []Shipment{
		{},
		{Date: day(2024, 1, 12)},
		{},
	}
	ds := New("id", "sparse.xlsx", nil, nil, shipments, map[Column]int{ColumnDate: 0})

	min, max, ok := ds.DateBounds()
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 12), min)
	assert.Equal(t, day(2024, 1, 12), max)

	undated := New("id", "undated.xlsx", nil, nil, []Shipment{{}, {}}, map[Column]int{ColumnDate: 0})
	_, _, ok = undated.DateBounds()
	assert.False(t, ok)
}

func TestDistinctValues(t *testing.T) {
	ds := sampleDataset()

	assert.Equal(t, []string{"Chennai", "Mumbai"}, ds.DistinctValues(ColumnLoading))
	assert.Equal(t, []string{"Germany", "USA"}, ds.DistinctValues(ColumnDestination))
	assert.Equal(t, []string{"Boston", "Hamburg", "New York"}, ds.DistinctValues(ColumnDischarge))
	assert.Nil(t, ds.DistinctValues(ColumnFOB), "numeric columns have no categorical values")
}

func TestDistinctValuesMissingColumn(t *testing.T) {
	ds := New("id", "n.xlsx", nil, nil, nil, map[Column]int{})
	assert.Nil(t, ds.DistinctValues(ColumnLoading))
}

func TestColumnsInWorkbookOrder(t *testing.T) {
	ds := sampleDataset()
	assert.Equal(t, AllColumns, ds.Columns())
}

func TestView(t *testing.T) {
	ds := sampleDataset()
	v := &View{Dataset: ds, Indices: []int{2, 0}}

	assert.Equal(t, 2, v.Len())
	assert.Equal(t, "Boston", v.Shipment(0).Discharge)
	assert.Equal(t, "New York", v.Shipment(1).Discharge)
	assert.Equal(t, []string{"20-01-2024", "Chennai", "USA", "Boston", "Granite slabs", "300", "30"}, v.Row(0))

	shipments := v.Shipments()
	require.Len(t, shipments, 2)
	assert.InDelta(t, 300, shipments[0].FOB, 0.001)
}
