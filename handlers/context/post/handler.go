package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/ragtutor/handlers"
	"github.com/a-h/ragtutor/models"
	"github.com/a-h/respond"
)

type Retriever interface {
	Context(ctx context.Context, question, filterDocument string, k int) (models.ContextPostResponse, error)
}

func New(log *slog.Logger, retriever Retriever, maxK int) Handler {
	return Handler{
		log:       log,
		retriever: retriever,
		maxK:      maxK,
	}
}

// Handler previews the context that would be used to answer a question.
type Handler struct {
	log       *slog.Logger
	retriever Retriever
	maxK      int
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ContextPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(h.log, w, err)
		return
	}
	if h.maxK > 0 && req.K > h.maxK {
		req.K = h.maxK
	}

	resp, err := h.retriever.Context(r.Context(), req.Question, req.FilterDocument, req.K)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to get context", err)
		return
	}

	respond.WithJSON(w, resp, http.StatusOK)
}
