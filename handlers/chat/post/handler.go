package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/handlers"
	"github.com/a-h/ragtutor/models"
	"github.com/a-h/ragtutor/pipeline"
	"github.com/a-h/respond"
)

type Answerer interface {
	Answer(ctx context.Context, req pipeline.Request) (models.ChatPostResponse, error)
}

func New(log *slog.Logger, answerer Answerer) Handler {
	return Handler{
		log:      log,
		answerer: answerer,
	}
}

type Handler struct {
	log      *slog.Logger
	answerer Answerer
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ChatPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(h.log, w, err)
		return
	}

	// Anonymous callers get an answer, but nothing is saved.
	user, _ := auth.GetUser(r)

	resp, err := h.answerer.Answer(r.Context(), pipeline.Request{
		User:           user,
		Question:       req.Question,
		SessionID:      req.SessionID,
		FilterDocument: req.FilterDocument,
	})
	if err != nil {
		handlers.WriteError(h.log, w, "failed to answer question", err)
		return
	}

	respond.WithJSON(w, resp, http.StatusOK)
}
