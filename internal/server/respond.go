package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"veriledger/internal/errs"
)

// envelope is the standard API response shape.
type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *errBody  `json:"error,omitempty"`
}

type errBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// respondJSON sends a success envelope with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// respondError maps a domain error to its HTTP status and sends an error
// envelope. Unknown errors become opaque 500s.
func respondError(w http.ResponseWriter, err error) {
	body := &errBody{Code: "INTERNAL", Message: "an unexpected error occurred"}
	status := http.StatusInternalServerError

	var domain *errs.Error
	if errors.As(err, &domain) {
		body.Code = string(domain.Code)
		body.Message = domain.Message
		body.Details = domain.Details
		status = statusOf(domain.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: body})
}

// respondNotFound is the shortcut for lookups that came back empty.
func respondNotFound(w http.ResponseWriter, message string) {
	respondError(w, errs.NotFound(message))
}

func statusOf(code errs.Code) int {
	switch code {
	case errs.CodeUnauthorized:
		return http.StatusForbidden
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeAlreadyExists:
		return http.StatusConflict
	case errs.CodeInvalidData, errs.CodeInvalidSensor, errs.CodeInvalidPeriod:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
