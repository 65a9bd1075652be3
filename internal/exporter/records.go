package exporter

import (
	"strconv"

	"expodash/internal/analytics"
)

// Record builders turning analytics series into CSV tables for report
// files.

// DailyShipmentRecords renders a daily shipment count series.
func DailyShipmentRecords(series []analytics.DateCount) ([]string, [][]string) {
	headers := []string{"date", "shipments"}
	records := make([][]string, 0, len(series))
	for _, p := range series {
		records = append(records, []string{
			p.Date.Format("2006-01-02"),
			strconv.Itoa(p.Count),
		})
	}
	return headers, records
}

// PortTrendRecords renders a per-port FOB trend series.
func PortTrendRecords(series []analytics.PortTrendPoint) ([]string, [][]string) {
	headers := []string{"date", "port", "fob"}
	records := make([][]string, 0, len(series))
	for _, p := range series {
		records = append(records, []string{
			p.Date.Format("2006-01-02"),
			p.Port,
			formatFloat(p.FOB),
		})
	}
	return headers, records
}

// ProductMetricRecords renders a ranked product table.
func ProductMetricRecords(series []analytics.ProductMetric, valueHeader string) ([]string, [][]string) {
	headers := []string{"product", valueHeader}
	records := make([][]string, 0, len(series))
	for _, p := range series {
		records = append(records, []string{p.Product, formatFloat(p.Value)})
	}
	return headers, records
}

// ProductTrendRecords renders a daily per-product trend series.
func ProductTrendRecords(series []analytics.ProductTrendPoint) ([]string, [][]string) {
	headers := []string{"date", "product", "shipments"}
	records := make([][]string, 0, len(series))
	for _, p := range series {
		records = append(records, []string{
			p.Date.Format("2006-01-02"),
			p.Product,
			strconv.Itoa(p.Count),
		})
	}
	return headers, records
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
