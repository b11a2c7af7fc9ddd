package handlers

import (
	"net/http"
	"strings"

	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// VisionRequest image 為 data URI、base64 或圖片 URL
type VisionRequest struct {
	Image string `json:"image" binding:"required"`
}

// AnalyzeImage POST /vision/analyze
func (h *Handler) AnalyzeImage(c *gin.Context) {
	var req VisionRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		respondError(c, common.ErrInvalidImageFormat)
		return
	}

	result, err := h.vision.AnalyzeImage(c.Request.Context(), req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
