// Package filter narrows a dataset to the rows matching a filter
// specification.
//
// Filtering is pure and order preserving: it never mutates the dataset
// and the resulting view keeps the original row order. Dimensions
// combine with AND; values within one dimension combine with OR. An
// empty value set leaves its dimension unrestricted, and a dimension
// whose backing column is absent from the dataset is skipped entirely.
package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"expodash/internal/dataset"
)

// Spec describes one filter request. Nil date bounds leave that side
// of the range open; both bounds are inclusive.
type Spec struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	Loading     []string
	Destination []string
	Discharge   []string
}

// IsZero reports whether the spec restricts nothing.
func (s Spec) IsZero() bool {
	return s.DateFrom == nil && s.DateTo == nil &&
		len(s.Loading) == 0 && len(s.Destination) == 0 && len(s.Discharge) == 0
}

// Fingerprint returns a stable digest of the spec, independent of the
// order values were supplied in. Used as part of cache keys.
func (s Spec) Fingerprint() string {
	var b strings.Builder
	if s.DateFrom != nil {
		b.WriteString(s.DateFrom.Format("2006-01-02"))
	}
	b.WriteByte('|')
	if s.DateTo != nil {
		b.WriteString(s.DateTo.Format("2006-01-02"))
	}
	for _, set := range [][]string{s.Loading, s.Destination, s.Discharge} {
		b.WriteByte('|')
		sorted := append([]string(nil), set...)
		sort.Strings(sorted)
		b.WriteString(strings.Join(sorted, "\x1f"))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Validate rejects specs that can never match anything by mistake,
// such as an inverted date range.
func (s Spec) Validate() error {
	if s.DateFrom != nil && s.DateTo != nil && s.DateFrom.After(*s.DateTo) {
		return fmt.Errorf("date_from %s is after date_to %s",
			s.DateFrom.Format("2006-01-02"), s.DateTo.Format("2006-01-02"))
	}
	return nil
}

// Apply evaluates the spec against a dataset and returns the matching
// view. Every predicate whose backing column is present must accept a
// row for it to be included.
func Apply(ds *dataset.Dataset, spec Spec) *dataset.View {
	preds := buildPredicates(ds, spec)

	indices := make([]int, 0, ds.Len())
	for i, s := range ds.Shipments {
		if matches(s, preds) {
			indices = append(indices, i)
		}
	}
	return &dataset.View{Dataset: ds, Indices: indices}
}

type predicate func(dataset.Shipment) bool

func matches(s dataset.Shipment, preds []predicate) bool {
	for _, p := range preds {
		if !p(s) {
			return false
		}
	}
	return true
}

func buildPredicates(ds *dataset.Dataset, spec Spec) []predicate {
	var preds []predicate

	if (spec.DateFrom != nil || spec.DateTo != nil) && ds.HasColumn(dataset.ColumnDate) {
		from, to := spec.DateFrom, spec.DateTo
		preds = append(preds, func(s dataset.Shipment) bool {
			if from != nil && s.Date.Before(*from) {
				return false
			}
			if to != nil && s.Date.After(*to) {
				return false
			}
			return true
		})
	}

	if p, ok := setPredicate(ds, dataset.ColumnLoading, spec.Loading, func(s dataset.Shipment) string { return s.Loading }); ok {
		preds = append(preds, p)
	}
	if p, ok := setPredicate(ds, dataset.ColumnDestination, spec.Destination, func(s dataset.Shipment) string { return s.Destination }); ok {
		preds = append(preds, p)
	}
	if p, ok := setPredicate(ds, dataset.ColumnDischarge, spec.Discharge, func(s dataset.Shipment) string { return s.Discharge }); ok {
		preds = append(preds, p)
	}

	return preds
}

func setPredicate(ds *dataset.Dataset, col dataset.Column, values []string, field func(dataset.Shipment) string) (predicate, bool) {
	if len(values) == 0 || !ds.HasColumn(col) {
		return nil, false
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(s dataset.Shipment) bool {
		_, ok := allowed[field(s)]
		return ok
	}, true
}
