package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/internal/services"
)

// parseStatusFilter splits a comma-separated filter value into the
// status set, so combined listings like "live, upcoming" work.
func parseStatusFilter(raw string) []models.EventStatus {
	if raw == "" {
		return nil
	}
	var statuses []models.EventStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			statuses = append(statuses, models.EventStatus(part))
		}
	}
	return statuses
}

func (h *Handler) handleRoot(c *gin.Context) {
	var listing *models.Listing
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		listing, opErr = h.services.Catalog.RootPage(c.Request.Context())
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) handleCollections(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var listing *models.Listing
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		listing, opErr = h.services.Catalog.Collections(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) handleProducts(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	opts := services.ProductsOptions{
		FilterStatus: parseStatusFilter(c.Query("filter")),
	}
	var listing *models.Listing
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		listing, opErr = h.services.Catalog.Products(c.Request.Context(), u, opts)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) handleSeasons(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var listing *models.Listing
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		listing, opErr = h.services.Catalog.SeasonListing(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) handleChannels(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var listing *models.Listing
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		listing, opErr = h.services.Catalog.Channels(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) handleLetters(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var items []models.MenuItem
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		items, opErr = h.services.Catalog.Letters(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Listing{Items: items})
}

func (h *Handler) handleCategories(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var items []models.MenuItem
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		items, opErr = h.services.Catalog.Categories(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Listing{Items: items})
}

func (h *Handler) handleSortings(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var items []models.MenuItem
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		items, opErr = h.services.Catalog.Sortings(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Listing{Items: items})
}

func (h *Handler) handleSearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter"})
		return
	}
	var listing *models.Listing
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		listing, opErr = h.services.Catalog.Search(c.Request.Context(), query)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.services.Session.AddSearch(query); err != nil {
		h.services.Logger.Warnf("[Handlers] recording search: %v", err)
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) handleSearchHistory(c *gin.Context) {
	queries, err := h.services.Session.Searches()
	if err != nil {
		h.respondError(c, err)
		return
	}
	if queries == nil {
		queries = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"queries": queries})
}

func (h *Handler) handleSearchHistoryDelete(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter"})
		return
	}
	if err := h.services.Session.RemoveSearch(query); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleMyListToggle(c *gin.Context) {
	guid := c.Query("guid")
	if guid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing guid parameter"})
		return
	}
	add := c.DefaultQuery("add", "true") == "true"
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		return h.services.MyList.Toggle(c.Request.Context(), guid, add)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guid": guid, "starred": add})
}

func (h *Handler) handleM3UExport(c *gin.Context) {
	u, ok := urlParam(c)
	if !ok {
		return
	}
	var path string
	err := h.services.Auth.WithSession(c.Request.Context(), func() error {
		var opErr error
		path, opErr = h.services.M3U.Export(c.Request.Context(), u)
		return opErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}
