// Package http exposes the records, import and dashboard services as a JSON
// and PNG API.
//
// This file implements the builder used by every handler to write
// consistent responses.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"finanzas/internal/charts"
	"finanzas/internal/core"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode response: %w", err)
		return b
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = data
	return b
}

// Body sets a raw body with its content type.
func (b *ResponseBuilder) Body(contentType string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = content
	return b
}

// Attachment asks the client to save the body as filename.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// Write sends the built response. An encoding failure becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// StatusFor maps a service error to the status code the API answers with.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, services.ErrUnknownChart),
		errors.Is(err, charts.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFrom builds the response for err. Internal errors are not echoed.
func ErrorFrom(err error) *ResponseBuilder {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return InternalServerError("internal error")
	}
	return ErrorResponse(status, err.Error())
}
