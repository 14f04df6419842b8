package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kacperjurak/thermalcore"
	"github.com/kacperjurak/thermalcore/internal/utils"
	"github.com/kacperjurak/thermalcore/pkg/models"
)

// statusFor maps a processing error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, thermalcore.ErrInvalidTimestep),
		errors.Is(err, thermalcore.ErrCalibrationNonConvergence):
		return http.StatusUnprocessableEntity
	case errors.Is(err, thermalcore.ErrConfiguration),
		errors.Is(err, thermalcore.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: err.Error()})
}

// RequestID propagates X-Request-ID, generating one when the caller sent
// none or an unparsable one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := utils.RequestID(c.GetHeader(requestIDHeader))
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)
