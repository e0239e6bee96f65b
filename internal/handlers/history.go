package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cellscope/internal/middleware"
	"cellscope/internal/repository"
)

// History routes serve the same records as /uploads with the history
// page's defaults: a larger page size and the inline payload always
// excluded.

func (h HandlerSet) ListHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	params := listParams(c, 50)
	params.IncludeImage = false

	uploads, pagination, err := h.uploads.List(c.Request.Context(), user.ID, params)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("list history failed")
		failWithError(c, http.StatusInternalServerError, "Failed to fetch prediction history", err)
		return
	}

	items := make([]uploadResponse, 0, len(uploads))
	for _, upload := range uploads {
		items = append(items, toUploadResponse(upload))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": pagination,
	})
}

func (h HandlerSet) HistoryStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	stats, err := h.uploads.StatsHistory(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("history stats failed")
		failWithError(c, http.StatusInternalServerError, "Failed to fetch history statistics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

func (h HandlerSet) GetHistoryItem(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	upload, err := h.uploads.Get(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			fail(c, http.StatusNotFound, "History item not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("get history item failed")
		failWithError(c, http.StatusInternalServerError, "Failed to fetch history item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toUploadResponse(upload),
	})
}

func (h HandlerSet) DeleteHistoryItem(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.uploads.Delete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			fail(c, http.StatusNotFound, "History item not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("delete history item failed")
		failWithError(c, http.StatusInternalServerError, "Failed to delete history item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "History item deleted successfully",
	})
}
