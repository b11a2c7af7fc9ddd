package handlers

import (
	"net/http"

	"nutrition-api/internal/core/shops"

	"github.com/gin-gonic/gin"
)

// FindShops POST /shops/find
func (h *Handler) FindShops(c *gin.Context) {
	var req shops.FindRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.shops.FindShops(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
