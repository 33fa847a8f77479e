package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/KaramelBytes/solarcmp/internal/stats"
)

const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInsufficientGroups = "INSUFFICIENT_GROUPS"
	CodeNoData             = "NO_DATA"
	CodeEmptyDataset       = "EMPTY_DATASET"
	CodeDatasetUnavailable = "DATASET_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

var (
	ErrInvalidRequest     = NewAPIError(fiber.StatusBadRequest, CodeInvalidRequest, "invalid request: some or all request parameters are invalid")
	ErrInsufficientGroups = NewAPIError(fiber.StatusUnprocessableEntity, CodeInsufficientGroups, "at least two sources with data are required for a comparison")
	ErrNoData             = NewAPIError(fiber.StatusUnprocessableEntity, CodeNoData, "the selected sources have no values for this metric")
	ErrEmptyDataset       = NewAPIError(fiber.StatusUnprocessableEntity, CodeEmptyDataset, "the selection matched no rows")
	ErrDatasetUnavailable = NewAPIError(fiber.StatusInternalServerError, CodeDatasetUnavailable, "the unified dataset could not be loaded")
	ErrInternalError      = NewAPIError(fiber.StatusInternalServerError, CodeInternalError, "an unexpected error occurred")
)

// APIError is the JSON error body returned by every endpoint.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func NewAPIError(statusCode int, code string, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

func (e APIError) WithMessage(format string, parts ...any) *APIError {
	e.Message = fmt.Sprintf(format, parts...)
	return &e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// translate maps request-time errors from the stats package to API errors.
// Anything else is returned unchanged.
func translate(err error) error {
	switch {
	case errors.Is(err, stats.ErrInsufficientGroups):
		return ErrInsufficientGroups
	case errors.Is(err, stats.ErrNoData):
		return ErrNoData
	case errors.Is(err, stats.ErrEmptyDataset):
		return ErrEmptyDataset
	}
	return err
}
