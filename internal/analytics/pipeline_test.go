package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expodash/internal/dataset"
)

var fullColumns = map[dataset.Column]int{
	dataset.ColumnDate: 0, dataset.ColumnLoading: 1, dataset.ColumnDestination: 2,
	dataset.ColumnDischarge: 3, dataset.ColumnProduct: 4, dataset.ColumnFOB: 5, dataset.ColumnQuantity: 6,
}

func fullView(shipments []dataset.Shipment) *dataset.View {
	ds := dataset.New("full", "full.xlsx", nil, nil, shipments, fullColumns)
	indices := make([]int, len(shipments))
	for i := range indices {
		indices[i] = i
	}
	return &dataset.View{Dataset: ds, Indices: indices}
}

func TestComputeFullDataset(t *testing.T) {
	summary, err := Compute(context.Background(), fullView(sampleShipments()), 10)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalShipments)
	require.NotNil(t, summary.TotalFOB)
	assert.InDelta(t, 800, *summary.TotalFOB, 0.001)
	require.NotNil(t, summary.MeanFOB)
	assert.InDelta(t, 160, *summary.MeanFOB, 0.001)
	require.NotNil(t, summary.UniqueProducts)
	assert.Equal(t, 3, *summary.UniqueProducts)

	assert.Len(t, summary.DailyShipments, 2)
	assert.Len(t, summary.PortFOBTrend, 4)
	assert.Len(t, summary.TopProductsByFOB, 3)
	assert.Len(t, summary.TopProductsByCount, 3)
	assert.Len(t, summary.TopProductsByQuantity, 3)
	assert.NotEmpty(t, summary.DailyProductTrend)
}

func TestComputeTrendUnaffectedByTopN(t *testing.T) {
	// topN caps the ranking tables only; the daily product trend
	// covers every product in the view.
	var shipments []dataset.Shipment
	for i := 0; i < 12; i++ {
		shipments = append(shipments, dataset.Shipment{
			Date:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Product: string(rune('A' + i)),
			FOB:     float64(i + 1),
		})
	}

	summary, err := Compute(context.Background(), fullView(shipments), 10)
	require.NoError(t, err)

	assert.Len(t, summary.TopProductsByCount, 10)
	assert.Len(t, summary.DailyProductTrend, 12)
}

func TestComputeEmptyView(t *testing.T) {
	summary, err := Compute(context.Background(), fullView(nil), 10)
	require.NoError(t, err)

	assert.Zero(t, summary.TotalShipments)
	require.NotNil(t, summary.TotalFOB)
	assert.Zero(t, *summary.TotalFOB)
	require.NotNil(t, summary.MeanFOB)
	assert.Zero(t, *summary.MeanFOB)

	// Enabled aggregates over an empty view are empty, not nil.
	assert.NotNil(t, summary.DailyShipments)
	assert.Empty(t, summary.DailyShipments)
	assert.NotNil(t, summary.TopProductsByFOB)
	assert.Empty(t, summary.TopProductsByFOB)
}

func TestComputeGatesOnMissingColumns(t *testing.T) {
	shipments := []dataset.Shipment{
		{Loading: "Chennai", FOB: 100},
		{Loading: "Mumbai", FOB: 200},
	}
	ds := dataset.New("partial", "partial.xlsx", nil, nil, shipments,
		map[dataset.Column]int{dataset.ColumnLoading: 0, dataset.ColumnFOB: 1})
	view := &dataset.View{Dataset: ds, Indices: []int{0, 1}}

	summary, err := Compute(context.Background(), view, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalShipments)
	require.NotNil(t, summary.TotalFOB)
	assert.InDelta(t, 300, *summary.TotalFOB, 0.001)

	// No date column: every time series is disabled.
	assert.Nil(t, summary.DailyShipments)
	assert.Nil(t, summary.PortFOBTrend)
	assert.Nil(t, summary.DailyProductTrend)
	// No product column: rankings and the distinct count are disabled.
	assert.Nil(t, summary.UniqueProducts)
	assert.Nil(t, summary.TopProductsByFOB)
	assert.Nil(t, summary.TopProductsByCount)
	assert.Nil(t, summary.TopProductsByQuantity)
}

func TestComputeRespectsTopN(t *testing.T) {
	shipments := make([]dataset.Shipment, 0, 15)
	for i := 0; i < 15; i++ {
		shipments = append(shipments, dataset.Shipment{
			Date:    day(2024, 1, 10),
			Product: string(rune('A' + i)),
			FOB:     float64(i + 1),
		})
	}

	summary, err := Compute(context.Background(), fullView(shipments), 10)
	require.NoError(t, err)
	assert.Len(t, summary.TopProductsByFOB, 10)
	assert.Len(t, summary.TopProductsByCount, 10)
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(time.Minute, 10)
	defer c.Stop()

	key := Key("ds-1", "fp-1")
	_, ok := c.Get(key)
	assert.False(t, ok)

	want := &Summary{TotalShipments: 42}
	c.Set(key, want)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10*time.Millisecond, 10)
	defer c.Stop()

	key := Key("ds-1", "fp-1")
	c.Set(key, &Summary{})

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(time.Minute, 2)
	defer c.Stop()

	c.Set(Key("ds", "a"), &Summary{TotalShipments: 1})
	time.Sleep(time.Millisecond)
	c.Set(Key("ds", "b"), &Summary{TotalShipments: 2})
	time.Sleep(time.Millisecond)
	c.Set(Key("ds", "c"), &Summary{TotalShipments: 3})

	// The oldest entry was evicted to make room.
	_, ok := c.Get(Key("ds", "a"))
	assert.False(t, ok)
	got, ok := c.Get(Key("ds", "c"))
	require.True(t, ok)
	assert.Equal(t, 3, got.TotalShipments)
}

func TestCacheZeroSizeStoresNothing(t *testing.T) {
	c := NewCache(time.Minute, 0)
	defer c.Stop()

	c.Set(Key("ds", "a"), &Summary{})
	_, ok := c.Get(Key("ds", "a"))
	assert.False(t, ok)
}

func TestCacheStats(t *testing.T) {
	c := NewCache(time.Minute, 10)
	defer c.Stop()

	c.Set(Key("ds", "a"), &Summary{})
	c.Get(Key("ds", "a"))
	c.Get(Key("ds", "missing"))

	stats := c.Stats()
	assert.Equal(t, 1, stats["entries"])
	assert.Equal(t, int64(1), stats["hit_count"])
	assert.Equal(t, int64(1), stats["miss_count"])
	assert.InDelta(t, 0.5, stats["hit_ratio"].(float64), 0.001)
}
