package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"nutrition-api/internal/api/middleware"
	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// FavoriteRequest 新增喜愛料理
type FavoriteRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddFavorite POST /favorites
func (h *Handler) AddFavorite(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, common.ErrUnauthorized)
		return
	}

	var req FavoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 255 {
		respondError(c, common.ErrInvalidRequest.WithMessage("Nome da receita inválido."))
		return
	}

	fav, err := h.store.AddFavorite(c.Request.Context(), user.ID, name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

// ListFavorites GET /favorites
func (h *Handler) ListFavorites(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, common.ErrUnauthorized)
		return
	}

	favorites, err := h.store.ListFavorites(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, favorites)
}

// DeleteFavorite DELETE /favorites/:id
func (h *Handler) DeleteFavorite(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, common.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, common.ErrInvalidRequest.WithMessage("Identificador inválido."))
		return
	}

	if err := h.store.DeleteFavorite(c.Request.Context(), user.ID, uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
