package handler

import (
	"net/http"
	"time"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/session"
)

type messagesPage struct {
	Messages []domain.Message
	Since    time.Time
}

// MessagesGetHandler lists the replies received since the last visit and
// moves the watermark to now.
func (h *Handler) MessagesGetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := session.FromContext(ctx)
	page := messagesPage{Since: s.MessagesSeenAt}

	fetchedAt := time.Now().UTC()
	resp, err := h.APIClient.Messages(ctx, s.MessagesSeenAt)
	if err != nil {
		h.renderLoadError(w, r, err)
		return
	}
	page.Messages = resp.Results

	if err := h.Sessions.MarkMessagesSeen(ctx, s, fetchedAt); err != nil {
		logger.FromRequest(r).Warn("failed to advance messages watermark", "error", err)
	}
	h.renderTemplate(w, r, "messages.html", page)
}
