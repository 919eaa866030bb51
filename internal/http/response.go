package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	log "github.com/sirupsen/logrus"
)

const (
	StatusSuccess             = "success"
	StatusBadRequest          = "bad_request"
	StatusNotFound            = "not_found"
	StatusUnauthorized        = "unauthorized"
	StatusTooManyRequests     = "too_many_requests"
	StatusBadGateway          = "bad_gateway"
	StatusInternalServerError = "internal_server_error"
)

// Response is the envelope of every API answer
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: StatusSuccess, Data: data})
}

func abortWith(c *gin.Context, code int, data interface{}) {
	c.AbortWithStatusJSON(code, Response{Status: statusText(code), Data: data})
}

// respondError maps an error onto its HTTP status. Server faults are logged with their stack.
func respondError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	var ae *apperr.Error
	if errors.As(err, &ae) {
		code = ae.HTTPStatus()
	}

	if code >= http.StatusInternalServerError {
		entry := log.WithField("request_id", c.GetString(requestIDKey))
		if ae != nil && ae.Stack() != "" {
			entry.Errorf("%s %s failed: %v\n%s", c.Request.Method, c.FullPath(), err, ae.Stack())
		} else {
			entry.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		}
	}
	abortWith(c, code, err.Error())
}

func statusText(code int) string {
	switch code {
	case http.StatusOK:
		return StatusSuccess
	case http.StatusBadRequest:
		return StatusBadRequest
	case http.StatusNotFound:
		return StatusNotFound
	case http.StatusUnauthorized:
		return StatusUnauthorized
	case http.StatusTooManyRequests:
		return StatusTooManyRequests
	case http.StatusBadGateway:
		return StatusBadGateway
	default:
		return StatusInternalServerError
	}
}
