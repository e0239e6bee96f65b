package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cellscope/internal/catalog"
)

func (h HandlerSet) ListCatalogModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Models retrieved successfully",
		"data":    h.catalog.All(),
	})
}

func (h HandlerSet) GetCatalogModel(c *gin.Context) {
	model, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrModelNotFound) {
			fail(c, http.StatusNotFound, "Model not found")
			return
		}
		failWithError(c, http.StatusInternalServerError, "Failed to fetch model data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Model retrieved successfully",
		"data":    model,
	})
}
