package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expodash/internal/dataset"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleShipments() []dataset.Shipment {
	return []dataset.Shipment{
		{Date: day(2024, 1, 10), Loading: "Chennai", Product: "Granite", FOB: 100, Quantity: 5},
		{Date: day(2024, 1, 10), Loading: "Mumbai", Product: "Cotton", FOB: 200, Quantity: 50},
		{Date: day(2024, 1, 10), Loading: "Chennai", Product: "Granite", FOB: 300, Quantity: 10},
		{Date: day(2024, 1, 12), Loading: "Chennai", Product: "Tea", FOB: 50, Quantity: 2},
		{Date: day(2024, 1, 12), Loading: "Mumbai", Product: "Cotton", FOB: 150, Quantity: 30},
	}
}

func TestDailyShipments(t *testing.T) {
	got := DailyShipments(sampleShipments())
	assert.Equal(t, []DateCount{
		{Date: day(2024, 1, 10), Count: 3},
		{Date: day(2024, 1, 12), Count: 2},
	}, got)
}

func TestDailyShipmentsEmpty(t *testing.T) {
	got := DailyShipments(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPortFOBTrend(t *testing.T) {
	got := PortFOBTrend(sampleShipments())
	assert.Equal(t, []PortTrendPoint{
		{Date: day(2024, 1, 10), Port: "Chennai", FOB: 400},
		{Date: day(2024, 1, 10), Port: "Mumbai", FOB: 200},
		{Date: day(2024, 1, 12), Port: "Chennai", FOB: 50},
		{Date: day(2024, 1, 12), Port: "Mumbai", FOB: 150},
	}, got)
}

func TestTopProductsByFOB(t *testing.T) {
	got := TopProductsByFOB(sampleShipments(), 10)
	require.Len(t, got, 3)
	assert.Equal(t, ProductMetric{Product: "Granite", Value: 400}, got[0])
	assert.Equal(t, ProductMetric{Product: "Cotton", Value: 350}, got[1])
	assert.Equal(t, ProductMetric{Product: "Tea", Value: 50}, got[2])
}

func TestTopProductsByFOBLimit(t *testing.T) {
	got := TopProductsByFOB(sampleShipments(), 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Granite", got[0].Product)
	assert.Equal(t, "Cotton", got[1].Product)
}

func TestTopProductsByCount(t *testing.T) {
	got := TopProductsByCount(sampleShipments(), 10)
	require.Len(t, got, 3)
	// Granite and Cotton both have 2 shipments; their relative order
	// is not asserted.
	assert.Equal(t, "Tea", got[2].Product)
	assert.InDelta(t, 2, got[0].Value, 0.001)
	assert.InDelta(t, 2, got[1].Value, 0.001)
}

func TestTopProductsByQuantity(t *testing.T) {
	got := TopProductsByQuantity(sampleShipments(), 10)
	require.Len(t, got, 3)
	assert.Equal(t, ProductMetric{Product: "Cotton", Value: 80}, got[0])
	assert.Equal(t, ProductMetric{Product: "Granite", Value: 15}, got[1])
	assert.Equal(t, ProductMetric{Product: "Tea", Value: 2}, got[2])
}

func TestDailyProductTrend(t *testing.T) {
	got := DailyProductTrend(sampleShipments())

	assert.Equal(t, []ProductTrendPoint{
		{Date: day(2024, 1, 10), Product: "Cotton", Count: 1},
		{Date: day(2024, 1, 10), Product: "Granite", Count: 2},
		{Date: day(2024, 1, 12), Product: "Cotton", Count: 1},
		{Date: day(2024, 1, 12), Product: "Tea", Count: 1},
	}, got)
}

func TestDailyProductTrendCoversAllProducts(t *testing.T) {
	// The trend has no ranking cutoff; rare products stay in the
	// series alongside frequent ones.
	var shipments []dataset.Shipment
	for i := 0; i < 12; i++ {
		shipments = append(shipments, dataset.Shipment{
			Date:    day(2024, 2, 1),
			Product: fmt.Sprintf("product-%02d", i),
		})
	}

	got := DailyProductTrend(shipments)
	require.Len(t, got, 12)

	seen := make(map[string]struct{})
	for _, p := range got {
		seen[p.Product] = struct{}{}
		assert.Equal(t, 1, p.Count)
	}
	assert.Len(t, seen, 12)
}

func TestDateSeriesSkipUndatedRows(t *testing.T) {
	shipments := append(sampleShipments(), dataset.Shipment{
		Loading: "Chennai", Product: "Granite", FOB: 75, Quantity: 3,
	})

	for _, dc := range DailyShipments(shipments) {
		assert.False(t, dc.Date.IsZero())
	}
	for _, p := range PortFOBTrend(shipments) {
		assert.False(t, p.Date.IsZero())
	}
	for _, p := range DailyProductTrend(shipments) {
		assert.False(t, p.Date.IsZero())
	}

	// Undated rows still count toward every non-date aggregate.
	assert.InDelta(t, 875, TotalFOB(shipments), 0.001)
	assert.Equal(t, 3, UniqueProductCount(shipments))
}

func TestUniqueProductCount(t *testing.T) {
	assert.Equal(t, 3, UniqueProductCount(sampleShipments()))
	assert.Equal(t, 0, UniqueProductCount(nil))
}

func TestScalars(t *testing.T) {
	shipments := sampleShipments()
	assert.InDelta(t, 800, TotalFOB(shipments), 0.001)
	assert.InDelta(t, 160, MeanFOB(shipments), 0.001)
}

func TestMeanFOBEmpty(t *testing.T) {
	assert.Zero(t, MeanFOB(nil))
}

func TestTopNTieSizes(t *testing.T) {
	// More tied values than the limit still yields exactly n entries.
	values := map[string]float64{}
	for i := 0; i < 20; i++ {
		values[fmt.Sprintf("product-%d", i)] = 7
	}
	got := topN(values, 10)
	assert.Len(t, got, 10)
}
