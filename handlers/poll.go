package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"remindly/services/scheduling"
	"remindly/utils"
)

// PollHandler implements the long-polling transport: the request blocks
// until a notification is due for the client and returns it, or ends empty
// when the client goes away.
type PollHandler struct {
	manager *scheduling.Manager
}

func NewPollHandler(manager *scheduling.Manager) *PollHandler {
	return &PollHandler{manager: manager}
}

// WaitForRemindHandler blocks on the client's scheduler until the next
// notification is due.
func (h *PollHandler) WaitForRemindHandler(c *gin.Context) {
	clientID := c.Param("id")
	scheduler, ok := h.manager.Scheduler(clientID)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "unknown client", clientID)
		return
	}

	info, err := scheduler.NextDueNotification(c.Request.Context())
	if err != nil {
		// The poll request was canceled or timed out on the client side.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.Status(http.StatusNoContent)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "waiting for notification failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, info)
}
