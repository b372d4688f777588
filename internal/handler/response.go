package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const errorTypeBase = "https://smartspend.app/errors/"

// problemTypes maps the statuses handlers answer with to their problem type slug
var problemTypes = map[int]string{
	http.StatusBadRequest:          "validation",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusNotFound:            "not-found",
	http.StatusConflict:            "conflict",
	http.StatusInternalServerError: "internal",
}

func writeProblem(c echo.Context, status int, title, detail string, errs []ValidationError) error {
	slug, ok := problemTypes[status]
	if !ok {
		slug = "internal"
	}
	if title == "" {
		title = http.StatusText(status)
	}
	return c.JSON(status, ProblemDetails{
		Type:     errorTypeBase + slug,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError writes a 400 with per-field errors
func NewValidationError(c echo.Context, detail string, errs []ValidationError) error {
	return writeProblem(c, http.StatusBadRequest, "Validation Error", detail, errs)
}

func NewNotFoundError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusNotFound, "", detail, nil)
}

func NewUnauthorizedError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusUnauthorized, "", detail, nil)
}

// NewConflictError is used when the request clashes with work already in progress
func NewConflictError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusConflict, "", detail, nil)
}

func NewInternalError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusInternalServerError, "", detail, nil)
}
