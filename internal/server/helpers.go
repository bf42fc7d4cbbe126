package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/finhub/internal/models"
	"github.com/bobmcallan/finhub/internal/services/aggregate"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// writePNG writes a rendered chart.
func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// errorStatus maps an error kind to an HTTP status. Schema errors from
// query-driven lookups are client errors; unknown keys are 404.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrSchema), errors.Is(err, models.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrReferential):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConsistency):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrOverlap):
		return http.StatusConflict
	case errors.Is(err, models.ErrExternal):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// loadErrorStatus maps a failed pipeline load. Any data integrity failure
// means the sources are unusable, not that the request was wrong.
func loadErrorStatus(err error) int {
	if _, ok := models.AsDataError(err); ok && !errors.Is(err, models.ErrExternal) && !errors.Is(err, models.ErrOverlap) {
		return http.StatusUnprocessableEntity
	}
	return errorStatus(err)
}

// writeErr writes err with its data check as code.
func writeErr(w http.ResponseWriter, status int, err error) {
	WriteErrorWithCode(w, status, err.Error(), models.CheckOf(err))
}

// monthsParam reads the timeframe filter: empty or "all" selects all time,
// otherwise a non-negative month count.
func monthsParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("months"))
	if v == "" || strings.EqualFold(v, "all") {
		return aggregate.AllTime, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < aggregate.AllTime {
		return 0, models.SchemaError("months_param", "months", "want a month count or all", v)
	}
	return n, nil
}
