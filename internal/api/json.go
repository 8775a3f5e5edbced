package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/templates"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	// Field names the recipe header field that failed validation.
	Field string `json:"field,omitempty"`
	// Line, Column and Construct locate a layout syntax error.
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	Construct string `json:"construct,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorStatus maps a domain error to its HTTP status and response body.
// Unexpected errors are logged and hidden behind "internal error".
func errorStatus(op string, err error) (int, errResponse) {
	var ve *templates.ValidationError
	var pe *parser.ParseError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, errResponse{
			Error:     ve.Error(),
			Line:      ve.Line,
			Column:    ve.Column,
			Construct: ve.Construct,
		}
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, errResponse{Error: pe.Err.Error(), Field: pe.Field}
	case errors.Is(err, apperr.ErrUnknownSlot):
		return http.StatusNotFound, errorBody("unknown layout slot")
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, errorBody("not found")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, errorBody("recipe already exists")
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest, errorBody(err.Error())
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorBody("request cancelled")
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		return http.StatusInternalServerError, errorBody("internal error")
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status, body := errorStatus(op, err)
	writeJSON(w, status, body)
}
