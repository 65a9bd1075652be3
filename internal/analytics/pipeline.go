package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"expodash/internal/dataset"
)

// Summary is the full analytics payload for one filtered view. Series
// backed by absent columns stay nil and are omitted from JSON; an
// enabled series over an empty view is an empty, non-nil slice.
type Summary struct {
	TotalShipments int      `json:"total_shipments"`
	TotalFOB       *float64 `json:"total_fob,omitempty"`
	MeanFOB        *float64 `json:"mean_fob,omitempty"`
	UniqueProducts *int     `json:"unique_products,omitempty"`

	// Disabled series marshal as null, enabled-but-empty ones as [].
	DailyShipments        []DateCount         `json:"daily_shipments"`
	PortFOBTrend          []PortTrendPoint    `json:"port_fob_trend"`
	TopProductsByFOB      []ProductMetric     `json:"top_products_by_fob"`
	TopProductsByCount    []ProductMetric     `json:"top_products_by_count"`
	TopProductsByQuantity []ProductMetric     `json:"top_products_by_quantity"`
	DailyProductTrend     []ProductTrendPoint `json:"daily_product_trend"`
}

// Compute runs every aggregate the view's columns support. Aggregates
// are independent, so they run concurrently; each goroutine writes its
// own Summary field.
func Compute(ctx context.Context, view *dataset.View, topN int) (*Summary, error) {
	ds := view.Dataset
	shipments := view.Shipments()

	summary := &Summary{TotalShipments: len(shipments)}

	hasDate := ds.HasColumn(dataset.ColumnDate)
	hasLoading := ds.HasColumn(dataset.ColumnLoading)
	hasProduct := ds.HasColumn(dataset.ColumnProduct)
	hasFOB := ds.HasColumn(dataset.ColumnFOB)
	hasQuantity := ds.HasColumn(dataset.ColumnQuantity)

	g, _ := errgroup.WithContext(ctx)

	if hasFOB {
		g.Go(func() error {
			total := TotalFOB(shipments)
			mean := MeanFOB(shipments)
			summary.TotalFOB = &total
			summary.MeanFOB = &mean
			return nil
		})
	}
	if hasProduct {
		g.Go(func() error {
			n := UniqueProductCount(shipments)
			summary.UniqueProducts = &n
			return nil
		})
		g.Go(func() error {
			summary.TopProductsByCount = TopProductsByCount(shipments, topN)
			return nil
		})
	}
	if hasDate {
		g.Go(func() error {
			summary.DailyShipments = DailyShipments(shipments)
			return nil
		})
	}
	if hasDate && hasLoading && hasFOB {
		g.Go(func() error {
			summary.PortFOBTrend = PortFOBTrend(shipments)
			return nil
		})
	}
	if hasProduct && hasFOB {
		g.Go(func() error {
			summary.TopProductsByFOB = TopProductsByFOB(shipments, topN)
			return nil
		})
	}
	if hasProduct && hasQuantity {
		g.Go(func() error {
			summary.TopProductsByQuantity = TopProductsByQuantity(shipments, topN)
			return nil
		})
	}
	if hasProduct && hasDate {
		g.Go(func() error {
			summary.DailyProductTrend = DailyProductTrend(shipments)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
