package common

import (
	"context"
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 可以看到原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，預定義錯誤包裝後仍可被辨識
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤的代碼與狀態包裝原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// WithMessage 複製錯誤並替換對外訊息
func (e *CustomError) WithMessage(message string) *CustomError {
	return NewError(e.Code, message, e.Status, e.Err)
}

// AsCustomError 取出錯誤鏈中的 CustomError，找不到時回傳內部錯誤
// 外層是一般 5xx 時，內層的 503/504 或 context 逾時優先
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status < http.StatusInternalServerError {
		return ce
	}
	if transient := transientCause(err); transient != nil {
		return transient
	}
	if ce != nil {
		return ce
	}
	return ErrInternalError.Wrap(err)
}

// transientCause 找出鏈中可重試的原因
func transientCause(err error) *CustomError {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ce, ok := e.(*CustomError); ok &&
			(ce.Status == http.StatusServiceUnavailable || ce.Status == http.StatusGatewayTimeout) {
			return ce
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrGatewayTimeout.Wrap(err)
	}
	return nil
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest    = "INVALID_REQUEST"     // 400
	ErrCodeUnauthorized      = "UNAUTHORIZED"        // 401
	ErrCodeNotFound          = "NOT_FOUND"           // 404
	ErrCodeConflict          = "CONFLICT"            // 409
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS"   // 429
	ErrCodeNotFood           = "NOT_FOOD"            // 400
	ErrCodeInvalidImage      = "INVALID_IMAGE"       // 400
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS" // 401

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeNegotiationFailed  = "NEGOTIATION_FAILED"  // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤（對外訊息使用 PT-PT）
var (
	// 客戶端錯誤
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "Pedido inválido.", http.StatusBadRequest, nil)
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "Autenticação necessária.", http.StatusUnauthorized, nil)
	ErrInvalidCredentials = NewError(ErrCodeInvalidCredential, "Utilizador ou palavra-passe inválidos.", http.StatusUnauthorized, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "Recurso não encontrado.", http.StatusNotFound, nil)
	ErrConflict           = NewError(ErrCodeConflict, "O recurso já existe.", http.StatusConflict, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "Demasiados pedidos.", http.StatusTooManyRequests, nil)
	ErrNotFood            = NewError(ErrCodeNotFood, "O texto indicado não corresponde a um alimento.", http.StatusBadRequest, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "Erro interno do servidor.", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Serviço temporariamente indisponível.", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "Tempo limite do serviço externo excedido.", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrInvalidImageFormat = NewError(ErrCodeInvalidImage, "Formato de imagem inválido.", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError(ErrCodeInvalidImage, "A imagem excede o tamanho máximo.", http.StatusBadRequest, nil)
	ErrInvalidImageType   = NewError(ErrCodeInvalidImage, "Tipo de imagem não suportado.", http.StatusBadRequest, nil)
	ErrAIServiceError     = NewError("AI_SERVICE_ERROR", "Erro no serviço de IA.", http.StatusServiceUnavailable, nil)
	ErrNegotiationFailed  = NewError(ErrCodeNegotiationFailed, "Erro ao processar receita personalizada.", http.StatusInternalServerError, nil)
)
