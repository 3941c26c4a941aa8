package ai

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wfunc/game-buddy/internal/config"
	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/logger"
	"go.uber.org/zap"
)

// ErrUnavailable 生成服务不可用（超时或传输失败）
// 调用方据此降级到确定性回复，不向用户暴露错误
var ErrUnavailable = errors.New(errors.ErrAIUnavailable)

// Client Ollama生成服务客户端
type Client struct {
	host        string
	model       string
	timeout     time.Duration
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient 创建生成服务客户端
func NewClient(cfg *config.AIConfig) *Client {
	return &Client{
		host:        strings.TrimRight(cfg.Host, "/"),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateRequest /api/generate 请求体
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions 采样参数
type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// generateResponse /api/generate 响应体
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate 发起一次生成请求
// 不自动重试，超时和传输失败统一返回 ErrUnavailable
func (c *Client) Generate(ctx context.Context, prompt, system string) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			NumPredict:  c.maxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化生成请求失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("创建生成请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			logger.Warn("生成请求超时",
				zap.Duration("timeout", c.timeout),
				zap.String("model", c.model),
			)
		} else {
			logger.Warn("生成服务连接失败", zap.Error(err))
		}
		return "", ErrUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("生成服务返回非200状态",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 400)),
		)
		return "", ErrUnavailable
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, errors.ErrAIResponse, truncate(string(body), 400))
	}

	logger.Debug("生成完成",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(parsed.Response)),
	)

	return parsed.Response, nil
}

// HealthCheck 检查生成服务是否可达
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// truncate 截断字符串用于日志输出
func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
