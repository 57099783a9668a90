// Package handlers exposes the addon over HTTP for the media-center
// host. Handlers return listing and playback data as JSON; rendering
// is the host's job.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/services"
)

// Handler carries the service container into the gin routes.
type Handler struct {
	services *services.Container
}

// New builds the handler set.
func New(c *services.Container) *Handler {
	return &Handler{services: c}
}

// SetupRoutes registers every route on the engine.
func (h *Handler) SetupRoutes(r *gin.Engine) {
	r.GET("/", h.handleIndex)

	menu := r.Group("/menu")
	{
		menu.GET("/root", h.handleRoot)
		menu.GET("/collections", h.handleCollections)
		menu.GET("/products", h.handleProducts)
		menu.GET("/seasons", h.handleSeasons)
		menu.GET("/channels", h.handleChannels)
		menu.GET("/letters", h.handleLetters)
		menu.GET("/categories", h.handleCategories)
		menu.GET("/sortings", h.handleSortings)
	}

	r.GET("/search", h.handleSearch)
	r.GET("/search/history", h.handleSearchHistory)
	r.DELETE("/search/history", h.handleSearchHistoryDelete)

	r.GET("/play", h.handlePlay)

	auth := r.Group("/auth")
	{
		auth.GET("/status", h.handleAuthStatus)
		auth.POST("/login", h.handleLogin)
		auth.GET("/activation", h.handleActivation)
		auth.POST("/pair", h.handlePair)
		auth.POST("/logout", h.handleLogout)
	}

	r.POST("/list/toggle", h.handleMyListToggle)
	r.POST("/m3u/export", h.handleM3UExport)
}

func (h *Handler) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    constants.AppName,
		"version": constants.AppVersion,
		"country": h.services.Config.Country,
	})
}

// urlParam fetches the mandatory url query parameter.
func urlParam(c *gin.Context) (string, bool) {
	u := c.Query("url")
	if u == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return "", false
	}
	return u, true
}

// respondError maps the service error taxonomy onto HTTP statuses and
// attaches the user-facing dialog text where one exists.
func (h *Handler) respondError(c *gin.Context, err error) {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusForbidden
		switch apiErr.Code {
		case constants.ErrMissingSessionCookie, constants.ErrPersistentLogin:
			status = http.StatusUnauthorized
		case constants.ErrParentalGuidancePinNeeded:
			status = http.StatusPreconditionRequired
		}
		c.JSON(status, gin.H{"error": apiErr.Code, "message": apiErr.UserMessage()})
		return
	}

	var authErr *services.AuthError
	if errors.As(err, &authErr) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth", "message": authErr.Reason})
		return
	}

	var resErr *services.ResolutionError
	if errors.As(err, &resErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "resolution", "message": resErr.Error()})
		return
	}

	var classErr *services.ClassificationError
	if errors.As(err, &classErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification", "message": classErr.Error()})
		return
	}

	h.services.Logger.Errorf("[Handlers] %s: %v", c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
}
