package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/middleware"
)

// NewRouter builds the gin engine with middlewares and every /api route.
func NewRouter(h *APIHandler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Cors())
	r.Use(middleware.LoadSession(h.svc.Auth))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes mounts the API under /api.
func RegisterRoutes(r *gin.Engine, h *APIHandler) {
	apiGroup := r.Group("/api")
	apiGroup.GET("/init", h.InitHandler)

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/signup", h.SignupHandler)
		authGroup.POST("/login", h.LoginHandler)
		authGroup.POST("/guest", h.GuestHandler)
		authGroup.POST("/password-reset", h.PasswordResetHandler)
		authGroup.POST("/password-reset/confirm", h.PasswordResetConfirmHandler)
		authGroup.POST("/logout", middleware.RequireSession(), h.LogoutHandler)
	}

	sessionGroup := apiGroup.Group("", middleware.RequireSession())
	{
		sessionGroup.GET("/profile", h.GetProfileHandler)
		sessionGroup.PUT("/profile", h.SaveProfileHandler)
		sessionGroup.GET("/profile/history", h.ProfileHistoryHandler)

		sessionGroup.GET("/assessments", h.ListAssessmentsHandler)
		sessionGroup.GET("/assessments/:type", h.GetAssessmentHandler)
		sessionGroup.POST("/assessments/:type/answers", h.AnswerHandler)
		sessionGroup.POST("/assessments/:type/restart", h.RestartAssessmentHandler)
		sessionGroup.POST("/assessments/:type/score", h.ScoreHandler)

		sessionGroup.POST("/chat", h.ChatHandler)
		sessionGroup.GET("/chat/history", h.ChatHistoryHandler)

		sessionGroup.GET("/safety", h.SafetyStateHandler)
		sessionGroup.POST("/safety/check", h.SafetyCheckHandler)
		sessionGroup.POST("/safety/dismiss", h.SafetyDismissHandler)

		sessionGroup.GET("/lock", h.LockStateHandler)
		sessionGroup.POST("/lock/open", h.LockOpenHandler)
		sessionGroup.POST("/lock/digits", h.LockDigitHandler)
		sessionGroup.POST("/lock/delete", h.LockDeleteHandler)
		sessionGroup.POST("/lock/close", h.LockCloseHandler)

		sessionGroup.POST("/prayer/generate", h.GeneratePrayerHandler)
	}

	journalGroup := apiGroup.Group("/journal", middleware.RequireUser(), middleware.RequireUnlocked())
	{
		journalGroup.GET("", h.ListJournalHandler)
		journalGroup.POST("", h.AddJournalHandler)
		journalGroup.DELETE("/:id", h.DeleteJournalHandler)
		journalGroup.GET("/stream", h.JournalStreamHandler)
	}

	hubGroup := apiGroup.Group("/prayer", middleware.RequireSession(), middleware.RequireUnlocked())
	{
		hubGroup.GET("/requests", h.ListRequestsHandler)
		hubGroup.POST("/requests", h.AddRequestHandler)
		hubGroup.POST("/requests/:id/pray", h.PrayHandler)
		hubGroup.POST("/requests/:id/answered", h.AnsweredHandler)
		hubGroup.DELETE("/requests/:id", h.DeleteRequestHandler)
		hubGroup.GET("/testimonies", h.ListTestimoniesHandler)
		hubGroup.POST("/testimonies", h.AddTestimonyHandler)
		hubGroup.GET("/stream", h.PrayerStreamHandler)
	}

	escalationGroup := apiGroup.Group("/escalations", middleware.RequireUser())
	{
		escalationGroup.GET("", h.ListEscalationsHandler)
		escalationGroup.POST("", h.SubmitEscalationHandler)
	}
}
