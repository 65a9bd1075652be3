package dataset

import (
	"sort"
	"time"
)

// Column identifies a recognized workbook column. Uploads may omit any
// of these; features backed by a missing column are disabled rather
// than rejected.
type Column string

const (
	ColumnDate        Column = "sb_date"
	ColumnLoading     Column = "port_of_loading"
	ColumnDestination Column = "country_of_destination"
	ColumnDischarge   Column = "port_of_discharge"
	ColumnProduct     Column = "hsn_description"
	ColumnFOB         Column = "fob"
	ColumnQuantity    Column = "quantity"
)

// AllColumns lists every recognized column in workbook order.
var AllColumns = []Column{
	ColumnDate,
	ColumnLoading,
	ColumnDestination,
	ColumnDischarge,
	ColumnProduct,
	ColumnFOB,
	ColumnQuantity,
}

// Shipment is one typed row of an export shipment workbook. Fields
// backed by absent columns hold their zero value.
type Shipment struct {
	Date        time.Time `json:"sb_date"`
	Loading     string    `json:"port_of_loading"`
	Destination string    `json:"country_of_destination"`
	Discharge   string    `json:"port_of_discharge"`
	Product     string    `json:"hsn_description"`
	FOB         float64   `json:"fob"`
	Quantity    float64   `json:"quantity"`
}

// Dataset is an immutable parsed workbook. Shipments and Rows are
// parallel slices: Rows keeps the original cell text of every workbook
// column so previews and exports reproduce the upload verbatim, while
// Shipments carries the typed view the filter and aggregation layers
// operate on.
type Dataset struct {
	ID         string
	Name       string
	UploadedAt time.Time
	Headers    []string
	Rows       [][]string
	Shipments  []Shipment

	columns map[Column]int
}

// New assembles a dataset from already-typed rows. The parser is the
// usual producer; tests and the CLI build small datasets directly.
func New(id, name string, headers []string, rows [][]string, shipments []Shipment, columns map[Column]int) *Dataset {
	cols := make(map[Column]int, len(columns))
	for c, idx := range columns {
		cols[c] = idx
	}
	return &Dataset{
		ID:         id,
		Name:       name,
		UploadedAt: time.Now(),
		Headers:    headers,
		Rows:       rows,
		Shipments:  shipments,
		columns:    cols,
	}
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Shipments)
}

// HasColumn reports whether the workbook carried the given column.
func (d *Dataset) HasColumn(c Column) bool {
	_, ok := d.columns[c]
	return ok
}

// ColumnIndex returns the original workbook position of a column.
func (d *Dataset) ColumnIndex(c Column) (int, bool) {
	idx, ok := d.columns[c]
	return idx, ok
}

// Columns returns the recognized columns present in this dataset, in
// workbook order.
func (d *Dataset) Columns() []Column {
	present := make([]Column, 0, len(d.columns))
	for _, c := range AllColumns {
		if _, ok := d.columns[c]; ok {
			present = append(present, c)
		}
	}
	return present
}

// DateBounds returns the earliest and latest shipment dates, ignoring
// rows with an empty date cell. ok is false when the date column is
// absent or no row carries a date.
func (d *Dataset) DateBounds() (min, max time.Time, ok bool) {
	if !d.HasColumn(ColumnDate) {
		return time.Time{}, time.Time{}, false
	}
	for _, s := range d.Shipments {
		if s.Date.IsZero() {
			continue
		}
		if !ok {
			min, max, ok = s.Date, s.Date, true
			continue
		}
		if s.Date.Before(min) {
			min = s.Date
		}
		if s.Date.After(max) {
			max = s.Date
		}
	}
	return min, max, ok
}

// DistinctValues returns the sorted distinct non-empty values of a
// categorical column. It returns nil when the column is absent.
func (d *Dataset) DistinctValues(c Column) []string {
	if !d.HasColumn(c) {
		return nil
	}
	seen := make(map[string]struct{})
	for _, s := range d.Shipments {
		v := s.categorical(c)
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func (s Shipment) categorical(c Column) string {
	switch c {
	case ColumnLoading:
		return s.Loading
	case ColumnDestination:
		return s.Destination
	case ColumnDischarge:
		return s.Discharge
	case ColumnProduct:
		return s.Product
	default:
		return ""
	}
}

// View is a filtered, order-preserving window onto a dataset. Indices
// point into the parent's Shipments and Rows slices.
type View struct {
	Dataset *Dataset
	Indices []int
}

// Len returns the number of rows in the view.
func (v *View) Len() int {
	return len(v.Indices)
}

// Shipment returns the i-th shipment of the view.
func (v *View) Shipment(i int) Shipment {
	return v.Dataset.Shipments[v.Indices[i]]
}

// Row returns the original cell text of the i-th row of the view.
func (v *View) Row(i int) []string {
	return v.Dataset.Rows[v.Indices[i]]
}

// Shipments materializes the filtered shipments in order.
func (v *View) Shipments() []Shipment {
	out := make([]Shipment, len(v.Indices))
	for i, idx := range v.Indices {
		out[i] = v.Dataset.Shipments[idx]
	}
	return out
}
