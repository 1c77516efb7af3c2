package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
)

const genericServerError = "An unexpected error occurred. Please try again later."

// Respond writes the standard success envelope. Non-blocking warnings, such
// as a history write that failed, travel next to the data.
func Respond(c *gin.Context, message string, data any, warnings ...string) {
	body := gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    data,
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	c.JSON(http.StatusOK, body)
}

// SendJSONError sends a standardized JSON error response. The internal error
// is attached to the gin context as a private error so the request logger
// records it; it never reaches the client. 5xx responses with an empty
// public message get a generic one.
func SendJSONError(c *gin.Context, statusCode int, publicMsg string, internalError error) {
	if internalError != nil {
		_ = c.Error(internalError)
	}
	if statusCode >= http.StatusInternalServerError && publicMsg == "" {
		publicMsg = genericServerError
	}
	c.AbortWithStatusJSON(statusCode, gin.H{
		"code":    statusCode,
		"message": publicMsg,
		"data":    nil,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindLocked:
		return http.StatusLocked
	case apperr.KindPersistence:
		return http.StatusServiceUnavailable
	case apperr.KindGeneration:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// SendError sends err using the status of its kind. Only the
// user-presentable message of an *apperr.Error is exposed.
func SendError(c *gin.Context, err error) {
	SendJSONError(c, StatusFor(apperr.KindOf(err)), apperr.Message(err, ""), err)
}
