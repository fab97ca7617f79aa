package httpx

import (
	"context"
	"errors"
	"net/http"
)

// Sentinel errors handlers wrap to choose a problem status.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type problemMapping struct {
	target     error
	status     int
	title      string
	showDetail bool
}

// Order matters: the first match wins.
var problemMappings = []problemMapping{
	{ErrValidation, http.StatusBadRequest, "Validation Failed", true},
	{ErrNotFound, http.StatusNotFound, "Not Found", true},
	{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized", false},
	{ErrForbidden, http.StatusForbidden, "Forbidden", false},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "Timeout", false},
	{context.Canceled, http.StatusServiceUnavailable, "Request Canceled", false},
}

// StatusFor returns the status RespondError would use for err.
func StatusFor(err error) int {
	for _, m := range problemMappings {
		if errors.Is(err, m.target) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// RespondError maps err onto an RFC7807 response. Only client errors carry the
// error text as detail.
func RespondError(w http.ResponseWriter, err error) {
	for _, m := range problemMappings {
		if errors.Is(err, m.target) {
			detail := ""
			if m.showDetail {
				detail = err.Error()
			}
			Problem(w, m.status, m.title, detail)
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
