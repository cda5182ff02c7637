package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/handlers"
	"github.com/a-h/ragtutor/models"
	"github.com/a-h/ragtutor/transcript"
	"github.com/a-h/respond"
)

type Historian interface {
	History(ctx context.Context, user, sessionID string) (msgs []transcript.Message, err error)
}

func New(log *slog.Logger, historian Historian) Handler {
	return Handler{
		log:       log,
		historian: historian,
	}
}

// Handler returns the transcript of one of the caller's sessions.
type Handler struct {
	log       *slog.Logger
	historian Historian
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		handlers.Unauthorized(w)
		return
	}

	id := r.PathValue("id")
	msgs, err := h.historian.History(r.Context(), user, id)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to get session", err)
		return
	}

	resp := models.SessionGetResponse{
		ID:       id,
		Messages: make([]models.Message, len(msgs)),
	}
	for i, m := range msgs {
		resp.Messages[i] = models.Message{
			Role:      string(m.Role),
			Content:   m.Content,
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		}
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
