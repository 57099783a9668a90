package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) handleAuthStatus(c *gin.Context) {
	err := h.services.Auth.ValidateSession(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"authenticated": err == nil})
}

func (h *Handler) handleLogin(c *gin.Context) {
	if err := h.services.Auth.Login(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (h *Handler) handleActivation(c *gin.Context) {
	act, err := h.services.Auth.ActivationData(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// handlePair runs the full pairing flow: it requests a code and blocks
// until the user enters it, the code expires, or the client goes away.
func (h *Handler) handlePair(c *gin.Context) {
	ctx := c.Request.Context()
	act, err := h.services.Auth.ActivationData(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.services.Logger.Infof("[Handlers] pairing: enter %s at %s", act.UserCode, act.VerificationURL)

	if err := h.services.Auth.DeviceRegistration(ctx, act, nil); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (h *Handler) handleLogout(c *gin.Context) {
	if err := h.services.Auth.Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}
