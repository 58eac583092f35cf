package handler

import (
	"net/http"

	"campusmart/client/internal/models"

	"github.com/gin-gonic/gin"
)

type sessionView struct {
	Identity      *models.Identity `json:"user"`
	Role          models.Role      `json:"role"`
	CollegeID     string           `json:"collegeId,omitempty"`
	UnreadCount   int              `json:"unreadCount"`
	Loading       bool             `json:"loading"`
	Authenticated bool             `json:"authenticated"`
	Realtime      string           `json:"realtime"`
	RealtimeUser  string           `json:"realtimeUser,omitempty"`
}

func (h *Handler) sessionView() sessionView {
	st := h.Session.Snapshot()
	v := sessionView{
		Identity:      st.Identity,
		Role:          st.Role,
		CollegeID:     st.CollegeID,
		UnreadCount:   st.UnreadCount,
		Loading:       st.Loading,
		Authenticated: st.Authenticated(),
	}
	if h.Channel != nil {
		v.Realtime = h.Channel.State().String()
		v.RealtimeUser = h.Channel.Identity()
	}
	return v
}

// GetSession returns the current session state.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionView())
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// Login installs a bearer credential obtained from the backend's auth endpoints.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	if err := h.Session.Login(c.Request.Context(), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionView())
}

// Logout drops the credential. Per-user stores follow the identity change; the cart
// is kept.
func (h *Handler) Logout(c *gin.Context) {
	h.Session.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}
