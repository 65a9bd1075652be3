// Package http contains the chi handlers for the dashboard API:
// dataset upload and metadata, filter application, dashboard payloads,
// CSV export and health probes. Handlers translate service errors into
// RFC 7807 responses and leave business logic to the services package.
package http
