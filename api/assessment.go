package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/assessment"
	"github.com/abimbolaoige/KFM-Counsel-Chat/services"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type answerRequest struct {
	Value int `json:"value" binding:"required"`
}

type scoreRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

type assessmentView struct {
	*assessment.Definition
	Progress *services.AssessmentProgress `json:"progress"`
}

// ListAssessmentsHandler lists the questionnaires.
// GET /api/assessments
func (h *APIHandler) ListAssessmentsHandler(c *gin.Context) {
	utils.Respond(c, "ok", h.svc.Assessments.Definitions())
}

func assessmentType(c *gin.Context) assessment.Type {
	return assessment.Type(c.Param("type"))
}

// GetAssessmentHandler returns the questions and the caller's progress.
// GET /api/assessments/:type
func (h *APIHandler) GetAssessmentHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	p, err := h.svc.Assessments.Progress(sess, assessmentType(c))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	var def *assessment.Definition
	for _, d := range h.svc.Assessments.Definitions() {
		if d.Type == p.Type {
			def = d
		}
	}
	utils.Respond(c, "ok", assessmentView{Definition: def, Progress: p})
}

// AnswerHandler records the answer to the current question.
// POST /api/assessments/:type/answers
func (h *APIHandler) AnswerHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req answerRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.Assessments.SubmitAnswer(c.Request.Context(), sess, assessmentType(c), req.Value)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", p, p.Warnings...)
}

// RestartAssessmentHandler clears the caller's answers.
// POST /api/assessments/:type/restart
func (h *APIHandler) RestartAssessmentHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	p, err := h.svc.Assessments.Restart(sess, assessmentType(c))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", p)
}

// ScoreHandler scores a complete answer list in one call.
// POST /api/assessments/:type/score
func (h *APIHandler) ScoreHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req scoreRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.Assessments.Score(c.Request.Context(), sess, assessmentType(c), req.Answers)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", p, p.Warnings...)
}
