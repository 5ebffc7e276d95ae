package api

import (
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
)

type ErrorBody struct {
	Code    apperr.Code `json:"code" example:"VALIDATION_ERROR"`
	Message string      `json:"message" example:"reason is required"`
	Details any         `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status     string `json:"status" example:"ok"`
	Database   string `json:"database,omitempty" example:"ok"`
	EmailQueue int64  `json:"email_queue" example:"0"`
	Email      string `json:"email,omitempty" example:"ok"`
}

// ListResponse wraps a page of items with the paging that produced it.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
