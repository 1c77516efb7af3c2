package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/services"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
	"github.com/abimbolaoige/KFM-Counsel-Chat/utils"
)

const sessionKey = "kfm.session"

// Logger is a Gin middleware for logging HTTP requests and responses.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		c.Writer.Header().Set("X-Response-Time", latency.String())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// Cors is a Gin middleware for enabling Cross-Origin Resource Sharing (CORS).
// It allows requests from any origin.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, User-Agent")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// bearerToken reads the session token from the Authorization header, or
// from the token query parameter for EventSource clients, which cannot set
// headers.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// LoadSession resolves the caller's session when a token is presented. A
// request without a token passes through anonymous; a stale token is
// rejected.
func LoadSession(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		sess, err := auth.Resolve(c.Request.Context(), token)
		if err != nil {
			utils.SendError(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session loaded by LoadSession, if any.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}

// RequireSession rejects requests without a session, guest or registered.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); !ok {
			utils.SendError(c, apperr.Auth("Please sign in"))
			return
		}
		c.Next()
	}
}

// RequireUser rejects guest sessions.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			utils.SendError(c, apperr.Auth("Please sign in"))
			return
		}
		if !sess.Registered() {
			utils.SendError(c, apperr.Forbidden("Create an account to use this feature"))
			return
		}
		c.Next()
	}
}

// RequireUnlocked guards the PIN-protected areas.
func RequireUnlocked() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			utils.SendError(c, apperr.Auth("Please sign in"))
			return
		}
		if !sess.Unlocked {
			utils.SendError(c, apperr.Locked("Enter your PIN to continue"))
			return
		}
		c.Next()
	}
}
