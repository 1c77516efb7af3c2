package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/middleware"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/services"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

const defaultKeepAlive = 15 * time.Second

// Services groups everything the HTTP layer calls into.
type Services struct {
	Auth        services.AuthService
	Profiles    services.ProfileService
	Assessments services.AssessmentService
	Safety      services.SafetyService
	Lock        services.LockService
	Chat        services.ChatService
	Prayer      services.PrayerService
	Journal     services.JournalService
	Escalations services.EscalationService
	Devotion    services.DevotionService
}

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	svc       Services
	log       *zap.Logger
	now       func() time.Time
	keepAlive time.Duration
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(svc Services, log *zap.Logger) *APIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{
		svc:       svc,
		log:       log.Named("API"),
		now:       time.Now,
		keepAlive: defaultKeepAlive,
	}
}

// mustSession returns the caller's session. Routes that call it sit behind
// RequireSession, so a miss is answered with 401.
func mustSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		utils.SendError(c, apperr.Auth("Please sign in"))
		return nil, false
	}
	return sess, true
}

// bind decodes the JSON body into dst, answering 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return false
	}
	return true
}

// InitHandler returns what the home view needs: the caller's identity, the
// verse of the day and the prayer topics.
// GET /api/init
func (h *APIHandler) InitHandler(c *gin.Context) {
	resp := models.InitResponse{
		UserType:     "anonymous",
		VerseOfDay:   h.svc.Devotion.VerseOfDay(h.now()),
		PrayerTopics: h.svc.Devotion.Topics(),
	}
	if sess, ok := middleware.CurrentSession(c); ok {
		resp.UserType = "guest"
		if sess.Registered() {
			resp.UserType = "registered"
			resp.UserID = sess.UserID
		}
		resp.Name = sess.Name
		resp.SafetyAlert = sess.SafetyAlert
		resp.Unlocked = sess.Unlocked
	}
	utils.Respond(c, "ok", resp)
}

// GetProfileHandler returns the caller's profile with a short history preview.
// GET /api/profile
func (h *APIHandler) GetProfileHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	p, warnings, err := h.svc.Profiles.Get(c.Request.Context(), sess)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", p.View(), warnings...)
}

// SaveProfileHandler merges the submitted fields into the profile.
// PUT /api/profile
func (h *APIHandler) SaveProfileHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var upd models.ProfileUpdate
	if !bind(c, &upd) {
		return
	}
	p, warnings, err := h.svc.Profiles.Save(c.Request.Context(), sess, upd)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Profile saved", p.View(), warnings...)
}

// ProfileHistoryHandler returns every stored triage result, newest first.
// GET /api/profile/history
func (h *APIHandler) ProfileHistoryHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	recs, err := h.svc.Profiles.History(c.Request.Context(), sess)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	if recs == nil {
		recs = []models.TriageRecord{}
	}
	utils.Respond(c, "ok", recs)
}

type escalationListResponse struct {
	Requests []models.EscalationRequest `json:"requests"`
}

// SubmitEscalationHandler files a request for a human counsellor.
// POST /api/escalations
func (h *APIHandler) SubmitEscalationHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var in services.EscalationInput
	if !bind(c, &in) {
		return
	}
	req, err := h.svc.Escalations.Submit(c.Request.Context(), sess, in)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "A counsellor will reach out to you soon.", req)
}

// ListEscalationsHandler lists the caller's own requests.
// GET /api/escalations
func (h *APIHandler) ListEscalationsHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	reqs, err := h.svc.Escalations.List(c.Request.Context(), sess)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.EscalationRequest{}
	}
	utils.Respond(c, "ok", escalationListResponse{Requests: reqs})
}
