package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListConversations returns the sidebar and the open thread. ?refresh=true reloads
// the list from the backend first.
func (h *Handler) ListConversations(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if err := h.Conversations.LoadConversations(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.Conversations.Store.Snapshot())
}

func (h *Handler) OpenConversation(c *gin.Context) {
	if err := h.Conversations.Open(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Conversations.Store.Snapshot())
}

func (h *Handler) CloseConversation(c *gin.Context) {
	h.Conversations.Close()
	c.Status(http.StatusNoContent)
}

type sendRequest struct {
	Message string `json:"message"`
}

// SendMessage posts to the open conversation.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	msg, err := h.Conversations.Send(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
