// Command exportreport reads a shipment workbook, applies optional
// filters and writes the filtered rows plus every aggregate series to
// CSV files, without running the web server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expodash/internal/analytics"
	"expodash/internal/config"
	"expodash/internal/dataset"
	"expodash/internal/exporter"
	"expodash/internal/filter"
	"expodash/internal/infrastructure"
)

func main() {
	in := flag.String("in", "", "input xlsx workbook (required)")
	out := flag.String("out", "", "output directory (defaults to the configured exports dir)")
	from := flag.String("from", "", "start date, inclusive (YYYY-MM-DD)")
	to := flag.String("to", "", "end date, inclusive (YYYY-MM-DD)")
	loading := flag.String("loading", "", "comma-separated ports of loading")
	destination := flag.String("destination", "", "comma-separated destination countries")
	discharge := flag.String("discharge", "", "comma-separated ports of discharge")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: exportreport -in report.xlsx [-out dir] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-loading a,b] [-destination c] [-discharge d]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = cfg.GetLogPath("exportreport.log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *out == "" {
		*out = cfg.Paths.ExportsDir
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("Failed to create output directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	spec, err := buildSpec(*from, *to, *loading, *destination, *discharge)
	if err != nil {
		logger.Error("Invalid filter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	start := time.Now()

	ds, err := dataset.ParseFile(*in)
	if err != nil {
		logger.Error("Failed to parse workbook",
			slog.String("file", *in),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	view := filter.Apply(ds, spec)
	logger.Info("Workbook loaded",
		slog.String("file", *in),
		slog.Int("rows", ds.Len()),
		slog.Int("matched", view.Len()))

	summary, err := analytics.Compute(context.Background(), view, cfg.Dataset.TopN)
	if err != nil {
		logger.Error("Aggregation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// CSVWriter resolves relative names against the configured exports
	// dir, so pin the chosen output dir to an absolute path first.
	outDir, err := filepath.Abs(*out)
	if err != nil {
		logger.Error("Failed to resolve output directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := writeReports(exporter.NewCSVWriter(cfg), outDir, view, summary); err != nil {
		logger.Error("Failed to write reports", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Report export complete",
		slog.String("output_dir", outDir),
		slog.Int("matched_rows", view.Len()),
		slog.String("duration", time.Since(start).String()))
}

func buildSpec(from, to, loading, destination, discharge string) (filter.Spec, error) {
	var spec filter.Spec

	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return spec, fmt.Errorf("invalid -from date %q: %w", from, err)
		}
		spec.DateFrom = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return spec, fmt.Errorf("invalid -to date %q: %w", to, err)
		}
		spec.DateTo = &t
	}
	spec.Loading = splitList(loading)
	spec.Destination = splitList(destination)
	spec.Discharge = splitList(discharge)

	return spec, spec.Validate()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// writeReports writes the filtered rows and one CSV per aggregate
// series the workbook's columns support.
func writeReports(w *exporter.CSVWriter, dir string, view *dataset.View, summary *analytics.Summary) error {
	rows, err := os.Create(filepath.Join(dir, "shipments.csv"))
	if err != nil {
		return err
	}
	if _, err := exporter.WriteView(rows, view, true); err != nil {
		rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	writeSeries := func(name string, headers []string, records [][]string) error {
		return w.WriteSimpleCSV(filepath.Join(dir, name), headers, records)
	}

	if summary.DailyShipments != nil {
		h, r := exporter.DailyShipmentRecords(summary.DailyShipments)
		if err := writeSeries("daily_shipments.csv", h, r); err != nil {
			return err
		}
	}
	if summary.PortFOBTrend != nil {
		h, r := exporter.PortTrendRecords(summary.PortFOBTrend)
		if err := writeSeries("port_fob_trend.csv", h, r); err != nil {
			return err
		}
	}
	if summary.TopProductsByFOB != nil {
		h, r := exporter.ProductMetricRecords(summary.TopProductsByFOB, "Total FOB")
		if err := writeSeries("top_products_by_fob.csv", h, r); err != nil {
			return err
		}
	}
	if summary.TopProductsByCount != nil {
		h, r := exporter.ProductMetricRecords(summary.TopProductsByCount, "Shipments")
		if err := writeSeries("top_products_by_count.csv", h, r); err != nil {
			return err
		}
	}
	if summary.TopProductsByQuantity != nil {
		h, r := exporter.ProductMetricRecords(summary.TopProductsByQuantity, "Total Quantity")
		if err := writeSeries("top_products_by_quantity.csv", h, r); err != nil {
			return err
		}
	}
	if summary.DailyProductTrend != nil {
		h, r := exporter.ProductTrendRecords(summary.DailyProductTrend)
		if err := writeSeries("daily_product_trend.csv", h, r); err != nil {
			return err
		}
	}

	return nil
}
