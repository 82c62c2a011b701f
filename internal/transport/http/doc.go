// Package http contains the chi HTTP handlers for the report service:
// batch analysis, report history, export downloads and health/metrics
// endpoints. Handlers validate requests with go-playground/validator and
// render failures as RFC 7807 problem documents.
package http
