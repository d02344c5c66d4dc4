package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"roadmap_ai_backend/internal/config"
	"roadmap_ai_backend/pkg/monitoring"
)

// ModelTransportError 模型侧传输失败，本轮对话按致命处理
type ModelTransportError struct {
	StatusCode int
	Err        error
}

func (e *ModelTransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("model transport error: %v", e.Err)
}

func (e *ModelTransportError) Unwrap() error { return e.Err }

// ErrModelTimeout 模型调用超时
var ErrModelTimeout = errors.New("model request timed out")

type AIChatMessage struct {
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []AIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
}

type AIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// AIToolDefinition OpenAI 兼容的工具定义
type AIToolDefinition struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	} `json:"function"`
}

type AIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AIResult 一次非流式模型调用的结果
type AIResult struct {
	Content      string
	ToolCalls    []AIToolCall
	FinishReason string
	Usage        AIUsage
}

// ModelClient 编排层依赖的模型能力，测试时用假实现替换
type ModelClient interface {
	// ExecuteWithTools 带工具定义的对话调用，模型可返回文本或工具调用
	ExecuteWithTools(ctx context.Context, messages []AIChatMessage, tools []AIToolDefinition, temperature float64) (*AIResult, error)
	// ExecuteStructured 要求模型以 json_object 输出并反序列化到 out
	ExecuteStructured(ctx context.Context, system, user string, temperature float64, out interface{}) error
}

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      AIChatMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage AIUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) ExecuteWithTools(ctx context.Context, messages []AIChatMessage, tools []AIToolDefinition, temperature float64) (*AIResult, error) {
	reqBody := map[string]interface{}{
		"model":       s.config.Model,
		"messages":    messages,
		"temperature": temperature,
	}
	if s.config.MaxTokens > 0 {
		reqBody["max_tokens"] = s.config.MaxTokens
	}
	if len(tools) > 0 {
		reqBody["tools"] = tools
	}

	return s.complete(ctx, "tools", reqBody)
}

func (s *AIService) ExecuteStructured(ctx context.Context, system, user string, temperature float64, out interface{}) error {
	reqBody := map[string]interface{}{
		"model": s.config.Model,
		"messages": []AIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"temperature":     temperature,
		"response_format": map[string]string{"type": "json_object"},
	}
	if s.config.MaxTokens > 0 {
		reqBody["max_tokens"] = s.config.MaxTokens
	}

	result, err := s.complete(ctx, "structured", reqBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(result.Content), out); err != nil {
		return &ModelTransportError{Err: fmt.Errorf("解析模型结构化输出失败: %w", err)}
	}
	return nil
}

func (s *AIService) complete(ctx context.Context, mode string, reqBody map[string]interface{}) (*AIResult, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	monitoring.ModelRequestDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrModelTimeout
		}
		var urlErr interface{ Timeout() bool }
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, ErrModelTimeout
		}
		return nil, &ModelTransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ModelTransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ModelTransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", string(body)),
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, &ModelTransportError{Err: err}
	}
	if completion.Error != nil {
		return nil, &ModelTransportError{Err: errors.New(completion.Error.Message)}
	}
	if len(completion.Choices) == 0 {
		return nil, &ModelTransportError{Err: errors.New("模型未返回任何候选")}
	}

	choice := completion.Choices[0]
	return &AIResult{
		Content:      choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
		Usage:        completion.Usage,
	}, nil
}
