package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type journalRequest struct {
	Text     string                 `json:"text"`
	Category models.JournalCategory `json:"category"`
}

// ListJournalHandler returns the caller's entries, newest first.
// GET /api/journal
func (h *APIHandler) ListJournalHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	entries, err := h.svc.Journal.List(c.Request.Context(), sess)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	utils.Respond(c, "ok", entries)
}

// AddJournalHandler adds an entry.
// POST /api/journal
func (h *APIHandler) AddJournalHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req journalRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Journal.Add(c.Request.Context(), sess, req.Text, req.Category)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Entry saved", out)
}

// DeleteJournalHandler removes one of the caller's entries.
// DELETE /api/journal/:id
func (h *APIHandler) DeleteJournalHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.svc.Journal.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Entry deleted", nil)
}

// JournalStreamHandler streams the journal as "journal" events.
// GET /api/journal/stream
func (h *APIHandler) JournalStreamHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	streamSnapshots[models.JournalEntry](c, "journal", h.keepAlive, func(ctx context.Context, cb func([]models.JournalEntry)) (func(), error) {
		return h.svc.Journal.Subscribe(ctx, sess, cb)
	})
}
