package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/sov-billing/internal/domain/errs"
)

// statusFor maps a service outcome to an HTTP status
func statusFor(err error) int {
	switch errs.Code(err) {
	case "validation_error":
		return http.StatusUnprocessableEntity
	case "permission_denied":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict", "already_locked", "approved", "empty_sov", "unsaved_changes",
		"draft_in_progress", "sov_not_ready", "over_contract":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal errors are logged and not echoed
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Code: errs.Code(err), Error: err.Error()}

	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		resp.Reasons = verr.Reasons()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "path", c.Request.URL.Path, "error", err)
		resp.Error = "internal error"
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Code: "bad_request", Error: msg})
}
