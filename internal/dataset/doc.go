// Package dataset parses export shipment workbooks into an immutable
// typed table.
//
// A workbook is read once at upload and never mutated afterwards; the
// filter and analytics packages only ever derive views over it. Column
// presence is tracked per dataset so uploads missing optional columns
// still load, with the dependent features disabled downstream.
package dataset
