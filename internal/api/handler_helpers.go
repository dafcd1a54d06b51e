package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourname/fastingtracker/internal"
	"github.com/yourname/fastingtracker/internal/response"
)

// statusFor maps lifecycle sentinels onto HTTP statuses: conflict 409,
// missing 404, wrong-state 422, anything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internal.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, internal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internal.ErrInvalidState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func HandleError(c *gin.Context, logger internal.Logger, err error, msg string) {
	requestID := c.GetString("request_id")
	status := statusFor(err)
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case http.StatusNotFound:
		resp = response.NotFound(msg + ": " + err.Error())
	case http.StatusConflict:
		resp = response.Conflict(msg + ": " + err.Error())
	case http.StatusUnprocessableEntity:
		resp = response.UnprocessableEntity(msg + ": " + err.Error())
	default:
		resp = response.InternalError(msg + ": " + err.Error())
	}
	c.JSON(status, resp)
}

func HandleBadRequest(c *gin.Context, logger internal.Logger, err error, msg string) {
	requestID := c.GetString("request_id")
	logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
	c.JSON(http.StatusBadRequest, response.BadRequest(msg+": "+err.Error()))
}

func HandleSuccess(c *gin.Context, data interface{}, meta map[string]any) {
	c.JSON(http.StatusOK, response.Success(data, meta))
}

func HandleCreated(c *gin.Context, data interface{}, meta map[string]any) {
	c.JSON(http.StatusCreated, response.Success(data, meta))
}
