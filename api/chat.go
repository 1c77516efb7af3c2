package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type chatRequest struct {
	Message string `json:"message"`
}

type textRequest struct {
	Text string `json:"text"`
}

// ChatHandler sends one message to the counsellor. A message that trips
// the crisis detector is answered with the safety state instead.
// POST /api/chat
func (h *APIHandler) ChatHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Chat.SendMessage(c.Request.Context(), sess, req.Message)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	msg := "ok"
	if out.Safety != nil {
		msg = "safety"
	}
	utils.Respond(c, msg, out, out.Warnings...)
}

// ChatHistoryHandler returns the transcript of the current session.
// GET /api/chat/history
func (h *APIHandler) ChatHistoryHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	msgs, err := h.svc.Chat.History(c.Request.Context(), sess)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	utils.Respond(c, "ok", msgs)
}

// SafetyStateHandler reports whether the safety alert is raised.
// GET /api/safety
func (h *APIHandler) SafetyStateHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	utils.Respond(c, "ok", h.svc.Safety.State(sess))
}

// SafetyCheckHandler runs the detector over arbitrary text.
// POST /api/safety/check
func (h *APIHandler) SafetyCheckHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req textRequest
	if !bind(c, &req) {
		return
	}
	h.svc.Safety.Check(c.Request.Context(), sess, req.Text)
	utils.Respond(c, "ok", h.svc.Safety.State(sess))
}

// SafetyDismissHandler is the "I am safe" action.
// POST /api/safety/dismiss
func (h *APIHandler) SafetyDismissHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.svc.Safety.Dismiss(c.Request.Context(), sess); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", h.svc.Safety.State(sess))
}
