package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custommw "iqccli/internal/middleware"
	"iqccli/internal/spc"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblemDomainErrors(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "invalid specification",
			err:        fmt.Errorf("parse limits: %w", &spc.SpecificationError{USL: 9.0, LSL: 10.0}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidSpecification,
			wantCode:   "INVALID_SPECIFICATION",
		},
		{
			name:       "unsupported subgroup size",
			err:        &spc.SubgroupSizeError{Size: 12, Supported: []int{2, 3, 4, 5, 6, 7, 8, 9, 10}},
			wantStatus: http.StatusBadRequest,
			wantType:   TypeSubgroupSize,
			wantCode:   "UNSUPPORTED_SUBGROUP_SIZE",
		},
		{
			name:       "insufficient data",
			err:        &spc.InsufficientDataError{Count: 3, Required: 5},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInsufficientData,
			wantCode:   "INSUFFICIENT_DATA",
		},
		{
			name:       "invalid measurement",
			err:        &spc.MeasurementError{Index: 7, Token: "abc"},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInvalidMeasurement,
			wantCode:   "INVALID_MEASUREMENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantCode, problem.Extensions["error_code"])
			assert.Equal(t, "/api/analysis", problem.Instance)
		})
	}
}

func TestErrorToProblemCarriesStructuredExtensions(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)

	problem := h.ErrorToProblem(&spc.InsufficientDataError{Count: 3, Required: 5}, req)
	assert.Equal(t, 3, problem.Extensions["measurement_count"])
	assert.Equal(t, 5, problem.Extensions["required_count"])

	problem = h.ErrorToProblem(&spc.MeasurementError{Index: 2, Token: "1O.2x"}, req)
	assert.Equal(t, 2, problem.Extensions["measurement_index"])
	assert.Equal(t, "1O.2x", problem.Extensions["measurement_token"])
}

func TestErrorToProblemContextErrors(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)

	problem := h.ErrorToProblem(context.DeadlineExceeded, req)
	assert.Equal(t, http.StatusGatewayTimeout, problem.Status)
	assert.Equal(t, TypeTimeout, problem.Type)
}

func TestErrorToProblemUnknownError(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)

	problem := h.ErrorToProblem(fmt.Errorf("boom"), req)
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, TypeInternal, problem.Type)
	assert.NotContains(t, problem.Detail, "boom")
}

func TestErrorToProblemAPIError(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/xyz", nil)

	problem := h.ErrorToProblem(ReportNotFoundError("xyz"), req)
	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.Equal(t, TypeReportNotFound, problem.Type)
	assert.Equal(t, "REPORT_NOT_FOUND", problem.Extensions["error_code"])
	assert.Equal(t, "xyz", problem.Extensions["details"])
}

func TestHandleErrorWritesProblemJSON(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, &spc.SpecificationError{USL: 1, LSL: 2})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeInvalidSpecification, body["type"])
	assert.Equal(t, "INVALID_SPECIFICATION", body["error_code"])
}

func TestHandleErrorCarriesRequestID(t *testing.T) {
	h := newTestHandler()

	handler := custommw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleError(w, r, &spc.SpecificationError{USL: 1, LSL: 2})
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
	handler.ServeHTTP(rec, req)

	reqID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, reqID)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, reqID, body["trace_id"])
}

func TestNotFoundCarriesRequestID(t *testing.T) {
	h := newTestHandler()

	handler := custommw.RequestID(http.HandlerFunc(h.NotFound))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	handler.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["trace_id"])
	assert.NotEmpty(t, body["trace_id"])
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	h := newTestHandler()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected failure")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis", nil)

	h.Middleware(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
}

func TestProblemDetailsMarshalIncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "bad input", "/api/analysis").
		WithExtension("trace_id", "abc-123")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc-123", decoded["trace_id"])
	assert.Equal(t, float64(http.StatusBadRequest), decoded["status"])
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrInsufficientData)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var envelope ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "INSUFFICIENT_DATA", envelope.Error.ErrorCode)
}
