// Package analytics computes the dashboard aggregates over a filtered
// shipment view.
//
// Each aggregate is a pure function of the view's shipments; the
// pipeline runs them concurrently and gates each one on the columns
// the dataset actually carries. Summaries are memoized per dataset
// generation and filter fingerprint.
package analytics
