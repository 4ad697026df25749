package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"remindly/models"
	"remindly/services/scheduling"
	"remindly/utils"
)

// ReminderHandler serves reminder registration, cancellation and listing.
type ReminderHandler struct {
	manager *scheduling.Manager
}

func NewReminderHandler(manager *scheduling.Manager) *ReminderHandler {
	return &ReminderHandler{manager: manager}
}

type reminderRequest struct {
	Kind string `json:"kind" binding:"required"`
	// Date uses the kind's layout: "15:04" for medication, "2006-01-02 15:04"
	// for everything else.
	Date   string `json:"date" binding:"required"`
	Remind *bool  `json:"remind" binding:"required"`
}

type reminderResponse struct {
	Kind   string `json:"kind"`
	Date   string `json:"date"`
	Remind bool   `json:"remind"`
}

// RegisterReminderHandler arms or cancels a reminder for a client, depending
// on the remind flag of the payload.
func (h *ReminderHandler) RegisterReminderHandler(c *gin.Context) {
	clientID := c.Param("id")
	if !h.manager.IsRegistered(clientID) {
		utils.JSONError(c, http.StatusNotFound, "unknown client", clientID)
		return
	}

	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid reminder payload", err.Error())
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid reminder kind", err.Error())
		return
	}
	reminder, err := models.ParseReminder(kind, req.Date, *req.Remind)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid reminder date", err.Error())
		return
	}

	if err := h.manager.RegisterOrCancel(clientID, reminder); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to register reminder", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRemindersHandler returns a snapshot of the client's armed reminders.
func (h *ReminderHandler) ListRemindersHandler(c *gin.Context) {
	clientID := c.Param("id")
	armed, err := h.manager.ListArmed(clientID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "unknown client", clientID)
		return
	}

	out := make([]reminderResponse, 0, len(armed))
	for _, r := range armed {
		out = append(out, reminderResponse{
			Kind:   string(r.Kind),
			Date:   r.FormattedDate(),
			Remind: r.Remind,
		})
	}
	c.JSON(http.StatusOK, gin.H{"reminders": out})
}
