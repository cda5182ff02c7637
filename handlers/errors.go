package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/ragtutor/models"
	"github.com/a-h/ragtutor/pipeline"
	"github.com/a-h/ragtutor/transcript"
	"github.com/a-h/respond"
)

// StatusOf maps a pipeline error to an HTTP status code.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, transcript.ErrSessionForbidden):
		return http.StatusForbidden
	case errors.Is(err, transcript.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError logs the error and writes it as JSON.
func WriteError(log *slog.Logger, w http.ResponseWriter, msg string, err error) {
	status := StatusOf(err)
	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	log.Log(context.Background(), level, msg, slog.Int("status", status), slog.Any("error", err))
	respond.WithJSON(w, models.ErrorResponse{Error: msg, Detail: err.Error()}, status)
}

// Unauthorized is written when a handler needs a user and there isn't one.
func Unauthorized(w http.ResponseWriter) {
	respond.WithJSON(w, models.ErrorResponse{Error: "authentication not provided"}, http.StatusUnauthorized)
}

// BadRequest is written when the body can't be decoded.
func BadRequest(log *slog.Logger, w http.ResponseWriter, err error) {
	log.Warn("failed to decode body", slog.Any("error", err))
	respond.WithJSON(w, models.ErrorResponse{Error: "failed to decode body", Detail: err.Error()}, http.StatusBadRequest)
}
