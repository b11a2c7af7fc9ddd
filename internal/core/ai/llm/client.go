package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/monitoring"
	"nutrition-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrRateLimited 供應商回傳 429
	ErrRateLimited = errors.New("llm provider rate limited")
	// ErrMalformedJSON 模型輸出無法解析為要求的 JSON
	ErrMalformedJSON = errors.New("llm returned malformed json")
)

// Completer 聊天補全能力介面
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Request 一次聊天補全請求
type Request struct {
	Model            string // 空字串使用預設模型（並啟用 fallback）
	Messages         []common.Message
	Temperature      float64
	MaxTokens        int
	JSONMode         bool
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Completion 模型回應
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage 使用量信息
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError 非 200 回應
type APIError struct {
	StatusCode int
	Model      string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error (model %s, status %d): %s", e.Model, e.StatusCode, e.Body)
}

// Unwrap 將 429 與 JSON 驗證失敗映射到哨兵錯誤
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	body := strings.ToLower(e.Body)
	if strings.Contains(body, "json_validate_failed") || strings.Contains(body, "failed to generate json") {
		return ErrMalformedJSON
	}
	return nil
}

type responseFormat struct {
	Type string `json:"type"`
}

type wireRequest struct {
	Model            string           `json:"model"`
	Messages         []common.Message `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
	MaxTokens        int              `json:"max_tokens,omitempty"`
	ResponseFormat   *responseFormat  `json:"response_format,omitempty"`
	PresencePenalty  *float64         `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64         `json:"frequency_penalty,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Client OpenAI 相容的聊天補全客戶端
type Client struct {
	http *resty.Client
	cfg  config.LLMConfig
}

// NewClient 以啟動時解析好的設定建立客戶端
func NewClient(cfg config.LLMConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http: httpClient,
		cfg:  cfg,
	}
}

// Complete 送出請求；預設模型遇到 429 時改用 fallback 模型
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	models := c.modelChain(req.Model)

	var lastErr error
	for i, model := range models {
		start := time.Now()
		completion, err := c.send(ctx, model, req)
		duration := time.Since(start)
		common.LogAICall(model, duration, err)
		monitoring.ObserveUpstream("llm", outcomeOf(err), duration)

		if err == nil {
			return completion, nil
		}
		lastErr = err

		if errors.Is(err, ErrRateLimited) && i < len(models)-1 {
			common.LogWarn("模型限流，改用備援模型",
				zap.String("model", model),
				zap.String("fallback_model", models[i+1]),
			)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// modelChain 指定模型時不做 fallback（例如 vision 模型）
func (c *Client) modelChain(requested string) []string {
	if requested != "" && requested != c.cfg.Model {
		return []string{requested}
	}
	chain := []string{c.cfg.Model}
	if c.cfg.FallbackModel != "" && c.cfg.FallbackModel != c.cfg.Model {
		chain = append(chain, c.cfg.FallbackModel)
	}
	return chain
}

func (c *Client) send(ctx context.Context, model string, req Request) (*Completion, error) {
	body := wireRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if c.cfg.SendPenalties {
		if req.PresencePenalty != 0 {
			body.PresencePenalty = &req.PresencePenalty
		}
		if req.FrequencyPenalty != 0 {
			body.FrequencyPenalty = &req.FrequencyPenalty
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to llm: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Model:      model,
			Body:       sanitizeBody(resp.Body()),
		}
	}

	var parsed wireResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in llm response")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in llm response")
	}
	if req.JSONMode && !validJSON(common.ExtractJSONPayload(content)) {
		return nil, fmt.Errorf("%w: model %s", ErrMalformedJSON, model)
	}

	answeredBy := parsed.Model
	if answeredBy == "" {
		answeredBy = model
	}
	return &Completion{
		Content: content,
		Model:   answeredBy,
		Usage:   parsed.Usage,
	}, nil
}

// CompleteJSON 以 JSON 模式請求並解析到 v；解析失敗回傳 ErrMalformedJSON
func CompleteJSON(ctx context.Context, c Completer, req Request, v interface{}) (*Completion, error) {
	req.JSONMode = true
	completion, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	payload := common.ExtractJSONPayload(completion.Content)
	if err := common.ParseJSON(payload, v); err != nil {
		// 小模型偶爾輸出未加引號的鍵
		if repairErr := common.ParseJSON(common.QuoteJSONKeys(payload), v); repairErr == nil {
			return completion, nil
		}
		return completion, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return completion, nil
}

func validJSON(payload string) bool {
	return json.Valid([]byte(payload)) || json.Valid([]byte(common.QuoteJSONKeys(payload)))
}

// IsRetryableJSONError 只有 JSON 格式錯誤才值得以嚴格提示重試
func IsRetryableJSONError(err error) bool {
	return errors.Is(err, ErrMalformedJSON)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeOK
	case errors.Is(err, ErrRateLimited):
		return monitoring.OutcomeRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return monitoring.OutcomeTimeout
	default:
		return monitoring.OutcomeError
	}
}

// sanitizeBody 移除圖片數據並截斷，避免寫入日誌
func sanitizeBody(body []byte) string {
	s := string(body)
	if strings.Contains(s, "data:image/") || (len(s) > 100 && strings.Contains(s, "base64")) {
		return "[IMAGE_DATA_REMOVED]"
	}
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
