package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type topicRequest struct {
	Topic string `json:"topic"`
}

type prayResponse struct {
	Counted bool `json:"counted"`
}

// GeneratePrayerHandler writes a prayer for a topic. Generation failures
// come back as the fallback prayer, not as an error.
// POST /api/prayer/generate
func (h *APIHandler) GeneratePrayerHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req topicRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Prayer.Generate(c.Request.Context(), sess, req.Topic)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", res)
}

// ListRequestsHandler returns the most recent prayer requests.
// GET /api/prayer/requests
func (h *APIHandler) ListRequestsHandler(c *gin.Context) {
	reqs, err := h.svc.Prayer.ListRequests(c.Request.Context())
	if err != nil {
		utils.SendError(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.PrayerRequest{}
	}
	utils.Respond(c, "ok", reqs)
}

// AddRequestHandler posts a prayer request to the hub.
// POST /api/prayer/requests
func (h *APIHandler) AddRequestHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req textRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Prayer.AddRequest(c.Request.Context(), sess, req.Text)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Request shared", out)
}

// PrayHandler counts the caller's prayer for a request, once per session.
// POST /api/prayer/requests/:id/pray
func (h *APIHandler) PrayHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	counted, err := h.svc.Prayer.Pray(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", prayResponse{Counted: counted})
}

// AnsweredHandler moves the caller's request to the testimonies.
// POST /api/prayer/requests/:id/answered
func (h *APIHandler) AnsweredHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	t, err := h.svc.Prayer.MarkAnswered(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Praise God!", t)
}

// DeleteRequestHandler removes the caller's own request.
// DELETE /api/prayer/requests/:id
func (h *APIHandler) DeleteRequestHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.svc.Prayer.DeleteRequest(c.Request.Context(), sess, c.Param("id")); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Request removed", nil)
}

// ListTestimoniesHandler returns the most recent testimonies.
// GET /api/prayer/testimonies
func (h *APIHandler) ListTestimoniesHandler(c *gin.Context) {
	ts, err := h.svc.Prayer.ListTestimonies(c.Request.Context())
	if err != nil {
		utils.SendError(c, err)
		return
	}
	if ts == nil {
		ts = []models.Testimony{}
	}
	utils.Respond(c, "ok", ts)
}

// AddTestimonyHandler shares a testimony.
// POST /api/prayer/testimonies
func (h *APIHandler) AddTestimonyHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req textRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Prayer.AddTestimony(c.Request.Context(), sess, req.Text)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Testimony shared", out)
}

// PrayerStreamHandler streams one hub section: "requests" (default) or
// "testimonies", selected with the section query parameter.
// GET /api/prayer/stream
func (h *APIHandler) PrayerStreamHandler(c *gin.Context) {
	switch section := c.DefaultQuery("section", "requests"); section {
	case "requests":
		streamSnapshots[models.PrayerRequest](c, "requests", h.keepAlive, h.svc.Prayer.SubscribeRequests)
	case "testimonies":
		streamSnapshots[models.Testimony](c, "testimonies", h.keepAlive, h.svc.Prayer.SubscribeTestimonies)
	default:
		utils.SendJSONError(c, http.StatusBadRequest, "Unknown hub section "+section, nil)
	}
}
