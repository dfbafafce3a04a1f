package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/billchat/internal/domain"
)

// Client-facing error messages
const (
	MsgRequired    = "Bill ID and message are required"
	MsgNotFound    = "Bill not found"
	MsgFailed      = "Error processing your request"
	MsgRateLimited = "Too many requests"
)

// ErrorResponse maps a domain error to its HTTP status and client message.
// Unknown errors are 500s.
func ErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, MsgRequired
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, MsgRateLimited
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, MsgFailed
	default:
		return http.StatusInternalServerError, MsgFailed
	}
}

// AbortWithError records err on the context and writes its JSON response
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, msg := ErrorResponse(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
