package handler

import (
	"errors"
	"net/http"

	"pollbox/internal/transport/httpdto"
	pollbox_errors "pollbox/pkg/errors"

	"github.com/gin-gonic/gin"
)

// HTTPStatus maps a service error to its response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, pollbox_errors.ErrInvalidInput), errors.Is(err, pollbox_errors.ErrUnauthorized):
		return http.StatusBadRequest
	case errors.Is(err, pollbox_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pollbox_errors.ErrAlreadyClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Token failures never say which check failed and
// server failures never echo the cause; the cause goes to c.Errors for the
// error middleware to log.
func writeError(c *gin.Context, err error) {
	status := HTTPStatus(err)

	var verr *pollbox_errors.ValidationError
	switch {
	case errors.Is(err, pollbox_errors.ErrInvalidVote):
		c.JSON(status, httpdto.NewMessageResponse("Free response not allowed or invalid vote"))
	case errors.As(err, &verr):
		c.JSON(status, httpdto.NewValidationErrorResponse(verr.Fields))
	case errors.Is(err, pollbox_errors.ErrUnauthorized):
		c.JSON(status, httpdto.NewMessageResponse("Invalid JWT"))
	case errors.Is(err, pollbox_errors.ErrNotFound):
		c.JSON(status, httpdto.NewMessageResponse("Poll not found"))
	case errors.Is(err, pollbox_errors.ErrAlreadyClosed):
		c.JSON(status, httpdto.NewMessageResponse("Poll already closed"))
	default:
		_ = c.Error(err)
		c.JSON(status, httpdto.NewMessageResponse("Internal server error"))
	}
}

func writeBindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.JSON(http.StatusBadRequest, httpdto.NewValidationErrorResponse(map[string][]string{
		"body": {"The request body must be a valid JSON object."},
	}))
}
