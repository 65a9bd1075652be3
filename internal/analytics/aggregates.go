package analytics

import (
	"sort"
	"time"

	"expodash/internal/dataset"
)

// DateCount is one point of a daily shipment count series.
type DateCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// PortTrendPoint is the summed FOB of one loading port on one day.
type PortTrendPoint struct {
	Date time.Time `json:"date"`
	Port string    `json:"port"`
	FOB  float64   `json:"fob"`
}

// ProductMetric ranks one product by some measure.
type ProductMetric struct {
	Product string  `json:"product"`
	Value   float64 `json:"value"`
}

// ProductTrendPoint is the shipment count of one product on one day.
type ProductTrendPoint struct {
	Date    time.Time `json:"date"`
	Product string    `json:"product"`
	Count   int       `json:"count"`
}

// DailyShipments counts shipments per day, sorted by date. Rows
// without a date value count toward the scalars but have no day to
// bucket into, so they are left out here.
func DailyShipments(shipments []dataset.Shipment) []DateCount {
	counts := make(map[time.Time]int)
	for _, s := range shipments {
		if s.Date.IsZero() {
			continue
		}
		counts[s.Date]++
	}
	out := make([]DateCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DateCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// PortFOBTrend sums FOB per loading port per day, sorted by date then
// port name.
func PortFOBTrend(shipments []dataset.Shipment) []PortTrendPoint {
	type key struct {
		date time.Time
		port string
	}
	sums := make(map[key]float64)
	for _, s := range shipments {
		if s.Date.IsZero() {
			continue
		}
		sums[key{s.Date, s.Loading}] += s.FOB
	}
	out := make([]PortTrendPoint, 0, len(sums))
	for k, v := range sums {
		out = append(out, PortTrendPoint{Date: k.date, Port: k.port, FOB: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Port < out[j].Port
	})
	return out
}

// TopProductsByFOB ranks products by summed FOB, highest first,
// keeping the first n.
func TopProductsByFOB(shipments []dataset.Shipment, n int) []ProductMetric {
	sums := make(map[string]float64)
	for _, s := range shipments {
		sums[s.Product] += s.FOB
	}
	return topN(sums, n)
}

// TopProductsByCount ranks products by shipment count, highest first,
// keeping the first n.
func TopProductsByCount(shipments []dataset.Shipment, n int) []ProductMetric {
	counts := make(map[string]float64)
	for _, s := range shipments {
		counts[s.Product]++
	}
	return topN(counts, n)
}

// TopProductsByQuantity ranks products by summed quantity, highest
// first, keeping the first n.
func TopProductsByQuantity(shipments []dataset.Shipment, n int) []ProductMetric {
	sums := make(map[string]float64)
	for _, s := range shipments {
		sums[s.Product] += s.Quantity
	}
	return topN(sums, n)
}

// DailyProductTrend counts shipments per product per day, covering
// every product in the input. Sorted by date then product name.
func DailyProductTrend(shipments []dataset.Shipment) []ProductTrendPoint {
	type key struct {
		date    time.Time
		product string
	}
	counts := make(map[key]int)
	for _, s := range shipments {
		if s.Date.IsZero() {
			continue
		}
		counts[key{s.Date, s.Product}]++
	}

	out := make([]ProductTrendPoint, 0, len(counts))
	for k, v := range counts {
		out = append(out, ProductTrendPoint{Date: k.date, Product: k.product, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// UniqueProductCount counts the distinct product descriptions.
func UniqueProductCount(shipments []dataset.Shipment) int {
	seen := make(map[string]struct{})
	for _, s := range shipments {
		seen[s.Product] = struct{}{}
	}
	return len(seen)
}

// TotalFOB sums the FOB of all shipments.
func TotalFOB(shipments []dataset.Shipment) float64 {
	var total float64
	for _, s := range shipments {
		total += s.FOB
	}
	return total
}

// MeanFOB returns the average FOB per shipment, zero for empty input.
func MeanFOB(shipments []dataset.Shipment) float64 {
	if len(shipments) == 0 {
		return 0
	}
	return TotalFOB(shipments) / float64(len(shipments))
}

// topN sorts the map descending by value and keeps the first n
// entries. Equal values have no guaranteed relative order.
func topN(values map[string]float64, n int) []ProductMetric {
	out := make([]ProductMetric, 0, len(values))
	for product, v := range values {
		out = append(out, ProductMetric{Product: product, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
