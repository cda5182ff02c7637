package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/handlers"
	"github.com/a-h/ragtutor/models"
	"github.com/a-h/respond"
)

type Lister interface {
	List(ctx context.Context, owner string) (docs []models.Document, err error)
}

func New(log *slog.Logger, lister Lister) Handler {
	return Handler{
		log:    log,
		lister: lister,
	}
}

type Handler struct {
	log    *slog.Logger
	lister Lister
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		handlers.Unauthorized(w)
		return
	}

	docs, err := h.lister.List(r.Context(), user)
	if err != nil {
		h.log.Error("document list failed", slog.Any("error", err))
		respond.WithJSON(w, models.ErrorResponse{Error: "document list failed"}, http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	respond.WithJSON(w, models.DocumentsGetResponse{Documents: docs}, http.StatusOK)
}
