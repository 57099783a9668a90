package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/internal/services"
)

// handlePlay resolves a product into a stream descriptor. A parental
// guidance challenge returns 428; the client retries once with pin=.
func (h *Handler) handlePlay(c *gin.Context) {
	ident := c.Query("ident")
	if ident == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing ident parameter"})
		return
	}
	opts := services.ResolveOptions{
		PIN: c.Query("pin"),
		TVE: c.Query("tve") == "1",
	}

	ctx := c.Request.Context()
	var desc *models.StreamDescriptor
	err := h.services.Auth.WithSession(ctx, func() error {
		var opErr error
		desc, opErr = h.services.Resolver.Resolve(ctx, ident, opts)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.services.Config.Subtitles && len(desc.Subtitles) > 0 {
		paths, err := h.services.Subtitles.Download(ctx, desc.Subtitles)
		if err != nil {
			h.services.Logger.Warnf("[Handlers] subtitle download: %v", err)
		} else {
			desc.Subtitles = paths
		}
	}
	c.JSON(http.StatusOK, desc)
}
