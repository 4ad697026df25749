package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"remindly/services/scheduling"
	"remindly/utils"
)

// ClientHandler serves client registration and device-token maintenance.
type ClientHandler struct {
	manager *scheduling.Manager
	tokens  *utils.RedisTokenStore
}

func NewClientHandler(manager *scheduling.Manager, tokens *utils.RedisTokenStore) *ClientHandler {
	return &ClientHandler{manager: manager, tokens: tokens}
}

// RegisterClientHandler creates a fresh scheduler + delivery backend pairing
// and returns the generated client id.
func (h *ClientHandler) RegisterClientHandler(c *gin.Context) {
	clientID := uuid.New().String()
	h.manager.NewClient(clientID)
	c.JSON(http.StatusCreated, gin.H{"clientId": clientID})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// UpdateTokenHandler sets or refreshes the client's FCM registration token.
func (h *ClientHandler) UpdateTokenHandler(c *gin.Context) {
	clientID := c.Param("id")
	if !h.manager.IsRegistered(clientID) {
		utils.JSONError(c, http.StatusNotFound, "unknown client", clientID)
		return
	}
	if h.tokens == nil {
		utils.JSONError(c, http.StatusNotImplemented, "token storage not configured", "")
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid token payload", err.Error())
		return
	}
	if err := h.tokens.SetFCMToken(c.Request.Context(), clientID, req.Token); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to store token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
