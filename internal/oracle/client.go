// Package oracle 大纲解析的外部模型调用
//
// 模型只负责把大纲文本转成候选 JSON；输出完全不可信，
// 由 internal/syllabus 负责宽松解析与规范化。
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"spaxio-scheduled/config"
)

const maxResponseSize = 2 * 1024 * 1024 // 2MB

// ErrEmptyCompletion 模型返回了空内容
var ErrEmptyCompletion = errors.New("模型返回内容为空")

// Client 大纲解析模型接口
//
// Extract 返回模型的原始文本输出（期望为 JSON 对象）；today 用于提示模型推断相对日期
type Client interface {
	Extract(ctx context.Context, text string, today time.Time) ([]byte, error)
}

// ── OpenAI 兼容实现 ──

type httpClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPClient 创建 OpenAI 兼容 chat/completions 客户端
func NewHTTPClient(cfg *config.ExtractionConfig, logger *zap.Logger) Client {
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.OracleBaseURL, "/"),
		apiKey:  cfg.OracleAPIKey,
		model:   cfg.OracleModel,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *httpClient) Extract(ctx context.Context, text string, today time.Time) ([]byte, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(today)},
			{Role: "user", Content: text},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("构造模型请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造模型请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用模型失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("读取模型响应失败: %w", err)
	}

	c.logger.Debug("模型调用完成",
		zap.String("model", c.model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)),
	)

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("模型响应格式错误: HTTP %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("调用模型失败: HTTP %d %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}
	return []byte(parsed.Choices[0].Message.Content), nil
}

// ── 测试 / 本地开发用实现 ──

// StaticClient 固定返回预设内容
type StaticClient struct {
	Response []byte
	Err      error
	// Calls 记录调用次数
	Calls int
}

// Extract 返回预设内容
func (s *StaticClient) Extract(_ context.Context, _ string, _ time.Time) ([]byte, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}
