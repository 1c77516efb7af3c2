package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/services"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// authResponse carries the bearer token for later requests.
type authResponse struct {
	Token   string           `json:"token"`
	Session *session.Session `json:"session"`
}

func respondSession(c *gin.Context, message string, sess *session.Session) {
	utils.Respond(c, message, authResponse{Token: sess.ID, Session: sess})
}

// SignupHandler creates an account and signs it in.
// POST /api/auth/signup
func (h *APIHandler) SignupHandler(c *gin.Context) {
	var req services.SignupRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	respondSession(c, "Welcome", sess)
}

// LoginHandler signs an existing account in.
// POST /api/auth/login
func (h *APIHandler) LoginHandler(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	respondSession(c, "Welcome back", sess)
}

// GuestHandler opens a guest session. Guest progress is not kept past logout.
// POST /api/auth/guest
func (h *APIHandler) GuestHandler(c *gin.Context) {
	sess, err := h.svc.Auth.Guest(c.Request.Context())
	if err != nil {
		utils.SendError(c, err)
		return
	}
	respondSession(c, "Welcome", sess)
}

// PasswordResetHandler answers the same way whether or not the address is known.
// POST /api/auth/password-reset
func (h *APIHandler) PasswordResetHandler(c *gin.Context) {
	var req resetRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "If an account exists for that email, a reset link is on its way.", nil)
}

// PasswordResetConfirmHandler sets a new password from a reset token.
// POST /api/auth/password-reset/confirm
func (h *APIHandler) PasswordResetConfirmHandler(c *gin.Context) {
	var req resetConfirmRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Password updated. Please sign in.", nil)
}

// LogoutHandler destroys the session and everything scoped to it.
// POST /api/auth/logout
func (h *APIHandler) LogoutHandler(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.svc.Auth.Logout(c.Request.Context(), sess); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.Respond(c, "Signed out", nil)
}
