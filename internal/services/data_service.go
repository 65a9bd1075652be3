// Package services holds the business logic between HTTP transport
// and the dataset, filter and analytics layers.
package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"expodash/internal/analytics"
	"expodash/internal/config"
	"expodash/internal/dataset"
	"expodash/internal/exporter"
	"expodash/internal/filter"
	"expodash/internal/infrastructure"
)

// ErrNoDataset indicates no workbook has been uploaded yet.
var ErrNoDataset = errors.New("dataset not found: no workbook has been uploaded")

// Broadcaster pushes dashboard events to connected clients.
type Broadcaster interface {
	BroadcastDatasetLoaded(datasetID, name string, rows int)
	BroadcastFiltersApplied(datasetID string, matched int)
	BroadcastExportComplete(datasetID string, rows int)
}

// DatasetMetadata describes the current dataset for the frontend:
// which filters can be offered and over what ranges.
type DatasetMetadata struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Rows       int       `json:"rows"`
	Columns    []string  `json:"columns"`

	DateMin *time.Time `json:"date_min,omitempty"`
	DateMax *time.Time `json:"date_max,omitempty"`

	LoadingPorts   []string `json:"loading_ports,omitempty"`
	Destinations   []string `json:"destinations,omitempty"`
	DischargePorts []string `json:"discharge_ports,omitempty"`
}

// Preview is the capped tabular slice of a filtered view.
type Preview struct {
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	Truncated bool       `json:"truncated"`
}

// DashboardPayload is everything one dashboard render needs.
type DashboardPayload struct {
	DatasetID   string             `json:"dataset_id"`
	MatchedRows int                `json:"matched_rows"`
	Preview     Preview            `json:"preview"`
	Summary     *analytics.Summary `json:"summary"`
}

// DataService owns the current dataset and its summary cache. A new
// upload replaces both atomically, so every cached summary dies with
// the dataset it was computed from.
type DataService struct {
	cfg     *config.Config
	logger  *slog.Logger
	hub     Broadcaster
	metrics *infrastructure.BusinessMetrics

	mu      sync.RWMutex
	current *dataset.Dataset
	cache   *analytics.Cache
}

// NewDataService creates a data service. hub and metrics may be nil in
// tests and the CLI.
func NewDataService(cfg *config.Config, logger *slog.Logger, hub Broadcaster, metrics *infrastructure.BusinessMetrics) *DataService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &DataService{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "data_service")),
		hub:     hub,
		metrics: metrics,
	}
}

// Upload parses a workbook and makes it the current dataset. The
// previous dataset and its cache are discarded.
func (s *DataService) Upload(ctx context.Context, r io.Reader, name string) (*DatasetMetadata, error) {
	start := time.Now()

	ds, err := dataset.Parse(r, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "workbook upload failed",
			slog.String("name", name),
			slog.String("error", err.Error()))
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	if s.cache != nil {
		s.cache.Stop()
	}
	s.current = ds
	if s.cfg.Cache.Enabled {
		s.cache = analytics.NewCache(s.cfg.Cache.TTL, s.cfg.Cache.MaxEntries)
	} else {
		s.cache = nil
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dataset_id", ds.ID),
		slog.String("name", name),
		slog.Int("rows", ds.Len()),
		slog.Duration("duration", time.Since(start)))

	if s.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("dataset.id", ds.ID))
		s.metrics.DatasetLoadsTotal.Add(ctx, 1, attrs)
		s.metrics.DatasetRowsLoaded.Add(ctx, int64(ds.Len()), attrs)
		s.metrics.DatasetLoadDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}

	if s.hub != nil {
		s.hub.BroadcastDatasetLoaded(ds.ID, ds.Name, ds.Len())
	}

	return s.metadataLocked(ds), nil
}

// Metadata returns the current dataset's description.
func (s *DataService) Metadata(ctx context.Context) (*DatasetMetadata, error) {
	ds, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return s.metadataLocked(ds), nil
}

func (s *DataService) metadataLocked(ds *dataset.Dataset) *DatasetMetadata {
	columns := ds.Columns()
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = string(c)
	}

	meta := &DatasetMetadata{
		ID:             ds.ID,
		Name:           ds.Name,
		UploadedAt:     ds.UploadedAt,
		Rows:           ds.Len(),
		Columns:        names,
		LoadingPorts:   ds.DistinctValues(dataset.ColumnLoading),
		Destinations:   ds.DistinctValues(dataset.ColumnDestination),
		DischargePorts: ds.DistinctValues(dataset.ColumnDischarge),
	}

	if min, max, ok := ds.DateBounds(); ok {
		meta.DateMin = &min
		meta.DateMax = &max
	}
	return meta
}

// Dashboard filters the current dataset and computes its summary,
// reusing a memoized result when this exact filter was seen before.
func (s *DataService) Dashboard(ctx context.Context, spec filter.Spec) (*DashboardPayload, error) {
	ds, cache, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	view := filter.Apply(ds, spec)

	summary, err := s.computeSummary(ctx, ds, cache, view, spec)
	if err != nil {
		return nil, err
	}

	previewRows := s.cfg.Dataset.PreviewRows
	truncated := view.Len() > previewRows
	n := view.Len()
	if truncated {
		n = previewRows
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = view.Row(i)
	}

	if s.hub != nil {
		s.hub.BroadcastFiltersApplied(ds.ID, view.Len())
	}

	return &DashboardPayload{
		DatasetID:   ds.ID,
		MatchedRows: view.Len(),
		Preview: Preview{
			Headers:   ds.Headers,
			Rows:      rows,
			Truncated: truncated,
		},
		Summary: summary,
	}, nil
}

func (s *DataService) computeSummary(ctx context.Context, ds *dataset.Dataset, cache *analytics.Cache, view *dataset.View, spec filter.Spec) (*analytics.Summary, error) {
	key := analytics.Key(ds.ID, spec.Fingerprint())

	if cache != nil {
		if summary, ok := cache.Get(key); ok {
			s.logger.DebugContext(ctx, "summary cache hit", slog.String("key", key))
			if s.metrics != nil {
				s.metrics.AggregateCacheHits.Add(ctx, 1)
			}
			return summary, nil
		}
		if s.metrics != nil {
			s.metrics.AggregateCacheMisses.Add(ctx, 1)
		}
	}

	start := time.Now()
	summary, err := analytics.Compute(ctx, view, s.cfg.Dataset.TopN)
	infrastructure.RecordPipelineMetrics(ctx, s.metrics, ds.ID, view.Len(), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		cache.Set(key, summary)
	}
	return summary, nil
}

// ExportCSV streams the filtered view as CSV, uncapped.
func (s *DataService) ExportCSV(ctx context.Context, w io.Writer, spec filter.Spec) (int, error) {
	ds, _, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	view := filter.Apply(ds, spec)
	n, err := exporter.WriteView(w, view, true)
	if err != nil {
		return n, err
	}

	s.logger.InfoContext(ctx, "csv export written",
		slog.String("dataset_id", ds.ID),
		slog.Int("rows", n))

	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(ctx, 1)
		s.metrics.ExportRowsWritten.Add(ctx, int64(n))
	}
	if s.hub != nil {
		s.hub.BroadcastExportComplete(ds.ID, n)
	}
	return n, nil
}

// CacheStats exposes summary cache counters for the health endpoint.
func (s *DataService) CacheStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return map[string]interface{}{"enabled": false}
	}
	stats := s.cache.Stats()
	stats["enabled"] = true
	return stats
}

// HasDataset reports whether a workbook is loaded.
func (s *DataService) HasDataset() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Close releases the summary cache.
func (s *DataService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.Stop()
		s.cache = nil
	}
}

func (s *DataService) snapshot() (*dataset.Dataset, *analytics.Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, nil, ErrNoDataset
	}
	return s.current, s.cache, nil
}
