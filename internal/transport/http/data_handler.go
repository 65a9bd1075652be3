package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "expodash/internal/errors"
	"expodash/internal/filter"
	"expodash/internal/services"
)

// DataService is the service surface the handlers need.
type DataService interface {
	Upload(ctx context.Context, r io.Reader, name string) (*services.DatasetMetadata, error)
	Metadata(ctx context.Context) (*services.DatasetMetadata, error)
	Dashboard(ctx context.Context, spec filter.Spec) (*services.DashboardPayload, error)
	ExportCSV(ctx context.Context, w io.Writer, spec filter.Spec) (int, error)
	HasDataset() bool
	CacheStats() map[string]interface{}
}

// DataHandler serves the dataset, dashboard and export endpoints.
type DataHandler struct {
	service        DataService
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validate       *validator.Validate
	maxUploadBytes int64
}

// NewDataHandler creates a data handler with its dependencies.
func NewDataHandler(service DataService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *DataHandler {
	return &DataHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "data_handler")),
		errorHandler:   errorHandler,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the router for data endpoints
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/dataset", h.UploadDataset)
	r.Get("/dataset", h.GetDatasetMetadata)
	r.Put("/filters", h.ApplyFilters)
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/export/csv", h.ExportCSV)

	return r
}

// FilterRequest is the JSON body of PUT /filters. Dates use the
// 2006-01-02 form.
type FilterRequest struct {
	DateFrom    string   `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo      string   `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Loading     []string `json:"loading" validate:"omitempty,dive,min=1"`
	Destination []string `json:"destination" validate:"omitempty,dive,min=1"`
	Discharge   []string `json:"discharge" validate:"omitempty,dive,min=1"`
}

// Spec converts the request into a filter spec.
func (req FilterRequest) Spec() (filter.Spec, error) {
	spec := filter.Spec{
		Loading:     req.Loading,
		Destination: req.Destination,
		Discharge:   req.Discharge,
	}
	if req.DateFrom != "" {
		t, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return spec, fmt.Errorf("invalid date_from: %w", err)
		}
		spec.DateFrom = &t
	}
	if req.DateTo != "" {
		t, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return spec, fmt.Errorf("invalid date_to: %w", err)
		}
		spec.DateTo = &t
	}
	return spec, nil
}

// UploadDataset handles POST /dataset with a multipart workbook.
func (h *DataHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r,
			apierrors.ErrValidation("file", "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	meta, err := h.service.Upload(ctx, file, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("dataset_id", meta.ID),
		slog.String("filename", header.Filename),
		slog.Int("rows", meta.Rows))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   meta,
	})
}

// GetDatasetMetadata handles GET /dataset.
func (h *DataHandler) GetDatasetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Metadata(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   meta,
	})
}

// ApplyFilters handles PUT /filters: it validates the filter payload
// and responds with the recomputed dashboard.
func (h *DataHandler) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FilterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, h.validationError(err))
		return
	}

	spec, err := req.Spec()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	payload, err := h.service.Dashboard(ctx, spec)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   payload,
	})
}

// GetDashboard handles GET /dashboard with filters in query params.
func (h *DataHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	spec, err := specFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	payload, err := h.service.Dashboard(r.Context(), spec)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   payload,
	})
}

// ExportCSV handles GET /export/csv, streaming the filtered rows.
func (h *DataHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	spec, err := specFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	// Download headers go out before the body, so everything that can
	// fail is checked first.
	if err := spec.Validate(); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if !h.service.HasDataset() {
		h.errorHandler.HandleError(w, r, apierrors.ErrDatasetNotFound)
		return
	}

	filename := fmt.Sprintf("shipments-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	n, err := h.service.ExportCSV(r.Context(), w, spec)
	if err != nil && n == 0 {
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("error", err.Error()))
	}
}

func (h *DataHandler) mapServiceError(err error) error {
	if errors.Is(err, services.ErrNoDataset) {
		return apierrors.ErrDatasetNotFound
	}
	return err
}

func (h *DataHandler) validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apierrors.ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apierrors.ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
			})
		}
		return apierrors.NewValidationErrors(fields)
	}
	return apierrors.InvalidRequestWithError(err)
}

// specFromQuery reads filters from query parameters: date_from and
// date_to as 2006-01-02, the set dimensions as repeated or
// comma-separated values.
func specFromQuery(r *http.Request) (filter.Spec, error) {
	q := r.URL.Query()
	var spec filter.Spec

	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return spec, fmt.Errorf("invalid date_from: %w", err)
		}
		spec.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return spec, fmt.Errorf("invalid date_to: %w", err)
		}
		spec.DateTo = &t
	}

	spec.Loading = queryValues(q["loading"])
	spec.Destination = queryValues(q["destination"])
	spec.Discharge = queryValues(q["discharge"])

	return spec, nil
}

func queryValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
