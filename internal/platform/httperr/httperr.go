// Package httperr defines the error kinds services return and their mapping
// onto HTTP responses. Authorization is checked before queries run, so a
// forbidden study filter surfaces as ErrForbidden, never as an empty result
// set. Where not-found and forbidden are ambiguous the exchange reports
// forbidden, leaking less.
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/fhir"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

var (
	// ErrInvalid marks malformed client input: bad system|value pairs,
	// missing required search parameters, unparseable ids.
	ErrInvalid = errors.New("invalid request")

	// ErrForbidden marks a caller that is not permitted to see the
	// requested study, patient or organization.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a resource id that does not exist for a caller who
	// could otherwise see it.
	ErrNotFound = errors.New("not found")
)

// Status maps an error to its HTTP status code. Database and other unknown
// errors are 500; this is a read-mostly service and retry policy belongs to
// callers.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, pagination.ErrPageOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a service error into an echo HTTPError for admin routes.
func ToHTTP(err error) *echo.HTTPError {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return echo.NewHTTPError(status, msg)
}

// outcomeCode picks the OperationOutcome issue type for an error.
func outcomeCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalid):
		return fhir.IssueTypeInvalid
	case errors.Is(err, ErrForbidden):
		return fhir.IssueTypeForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, pagination.ErrPageOutOfRange):
		return fhir.IssueTypeNotFound
	default:
		return fhir.IssueTypeException
	}
}

// RenderOutcome writes an error as a FHIR OperationOutcome response.
func RenderOutcome(c echo.Context, err error) error {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return c.JSON(status, fhir.ErrorOutcome(outcomeCode(err), msg))
}
