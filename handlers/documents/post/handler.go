package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/handlers"
	"github.com/a-h/ragtutor/models"
	"github.com/a-h/respond"
)

type Creator interface {
	Create(ctx context.Context, owner string, doc models.Document) (id string, err error)
}

type Indexer interface {
	Index(ctx context.Context, doc models.Document) error
}

func New(log *slog.Logger, creator Creator, indexer Indexer) Handler {
	return Handler{
		log:     log,
		creator: creator,
		indexer: indexer,
	}
}

type Handler struct {
	log     *slog.Logger
	creator Creator
	indexer Indexer
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		handlers.Unauthorized(w)
		return
	}

	var req models.DocumentsPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(h.log, w, err)
		return
	}
	if strings.TrimSpace(req.Document.Title) == "" {
		respond.WithJSON(w, models.ErrorResponse{Error: "title is required"}, http.StatusBadRequest)
		return
	}

	var resp models.DocumentsPostResponse
	var err error
	resp.ID, err = h.creator.Create(r.Context(), user, req.Document)
	if err != nil {
		h.log.Error("document create failed", slog.Any("error", err))
		respond.WithJSON(w, models.ErrorResponse{Error: "document create failed"}, http.StatusInternalServerError)
		return
	}

	// The record exists even if indexing fails, so it can be retried.
	req.Document.ID = resp.ID
	if err = h.indexer.Index(r.Context(), req.Document); err != nil {
		h.log.Warn("document indexing failed", slog.String("id", resp.ID), slog.Any("error", err))
	} else {
		resp.Indexing = true
	}

	respond.WithJSON(w, resp, http.StatusCreated)
}
