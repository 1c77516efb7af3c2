package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/pinlock"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type digitRequest struct {
	Digit string `json:"digit"`
}

func (h *APIHandler) respondLock(c *gin.Context, st pinlock.State, err error) {
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", st)
}

// LockStateHandler returns the PIN pad state.
// GET /api/lock
func (h *APIHandler) LockStateHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	st, err := h.svc.Lock.State(c.Request.Context(), sess)
	h.respondLock(c, st, err)
}

// LockOpenHandler starts a fresh PIN pad; the session is locked again.
// POST /api/lock/open
func (h *APIHandler) LockOpenHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	st, err := h.svc.Lock.Open(c.Request.Context(), sess)
	h.respondLock(c, st, err)
}

// LockDigitHandler feeds one digit to the PIN pad.
// POST /api/lock/digits
func (h *APIHandler) LockDigitHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	var req digitRequest
	if !bind(c, &req) {
		return
	}
	st, err := h.svc.Lock.PushDigit(c.Request.Context(), sess, req.Digit)
	h.respondLock(c, st, err)
}

// LockDeleteHandler removes the last digit.
// POST /api/lock/delete
func (h *APIHandler) LockDeleteHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	st, err := h.svc.Lock.DeleteDigit(c.Request.Context(), sess)
	h.respondLock(c, st, err)
}

// LockCloseHandler leaves the protected area.
// POST /api/lock/close
func (h *APIHandler) LockCloseHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.svc.Lock.Close(c.Request.Context(), sess); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "ok", nil)
}
