package handlers

import (
	"errors"
	"io"
	"net/http"

	"nutrition-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 轉成 {code, message}；未知錯誤一律 500
func respondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("path", c.FullPath()),
			zap.String("code", ce.Code),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, common.ErrorResponse{Code: ce.Code, Message: ce.Message})
}

// bindJSON 解析失敗時已寫出 400
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondError(c, common.NewError("PAYLOAD_TOO_LARGE", "O pedido excede o tamanho máximo permitido.", http.StatusRequestEntityTooLarge, err))
		case errors.Is(err, io.EOF):
			respondError(c, common.ErrInvalidRequest.WithMessage("O corpo do pedido está vazio.").Wrap(err))
		default:
			respondError(c, common.ErrInvalidRequest.WithMessage("Formato do pedido inválido.").Wrap(err))
		}
		return false
	}
	return true
}
