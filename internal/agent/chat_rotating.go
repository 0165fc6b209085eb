package agent

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

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"ai-recruiter-go/internal/logger"
)

const defaultTemperature float32 = 0.1

// RotatingChatClient 基于密钥池轮询的OpenAI兼容聊天客户端
// 单次调用最多尝试池内密钥数量次：429换下一把密钥重试，
// 其他非2xx立即失败，网络错误继续重试
type RotatingChatClient struct {
	pool       *KeyPool
	modelName  string
	apiURL     string
	httpClient *http.Client
}

// NewRotatingChatClient 创建轮询聊天客户端
func NewRotatingChatClient(pool *KeyPool, modelName, apiURL string, timeout time.Duration) (*RotatingChatClient, error) {
	if pool == nil {
		return nil, fmt.Errorf("密钥池不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		return nil, fmt.Errorf("模型名不能为空")
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("API URL不能为空")
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	logger.Info().
		Str("api_url", apiURL).
		Str("model", modelName).
		Int("pool_size", pool.Size()).
		Msg("LLM客户端就绪")

	return &RotatingChatClient{
		pool:       pool,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	Temperature float32           `json:"temperature"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Id      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// Generate 实现 model.ChatModel 接口
func (c *RotatingChatClient) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	opts := model.GetCommonOptions(&model.Options{}, options...)
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	attempts := c.pool.Size()
	var lastErr error

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		apiKey := c.pool.Next()
		msg, err := c.doRequest(ctx, apiKey, messages, temperature)
		if err == nil {
			return msg, nil
		}

		var statusErr *APIStatusError
		if errors.As(err, &statusErr) {
			if statusErr.StatusCode == http.StatusTooManyRequests {
				// 限流：静默换下一把密钥
				logger.Debug().
					Int("attempt", i+1).
					Msg("密钥被限流，切换下一把")
				lastErr = err
				continue
			}
			// 其他HTTP错误换密钥也无济于事，立即失败
			return nil, err
		}

		// 网络层错误：记录后重试
		logger.Warn().
			Err(err).
			Int("attempt", i+1).
			Msg("LLM请求网络错误，重试")
		lastErr = err
	}

	return nil, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// GenerateText 便捷封装：以指定温度生成并返回纯文本内容
func (c *RotatingChatClient) GenerateText(ctx context.Context, messages []*schema.Message, temperature float32) (string, error) {
	msg, err := c.Generate(ctx, messages, model.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (c *RotatingChatClient) doRequest(ctx context.Context, apiKey string, messages []*schema.Message, temperature float32) (*schema.Message, error) {
	reqPayload := chatCompletionRequest{
		Model:       c.modelName,
		Messages:    messages,
		Temperature: temperature,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &APIStatusError{StatusCode: httpResp.StatusCode, Body: string(bodyBytes)}
	}

	var apiResp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("API返回空choices: %s", string(bodyBytes))
	}

	apiMessage := apiResp.Choices[0].Message
	content := ""
	if apiMessage.Content != nil {
		content = *apiMessage.Content
	}

	role := schema.RoleType(apiMessage.Role)
	if role == "" {
		role = schema.Assistant
	}

	return &schema.Message{Role: role, Content: content}, nil
}

// Stream 实现 model.ChatModel 接口（未启用流式输出）
func (c *RotatingChatClient) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("RotatingChatClient 的 Stream 方法未实现")
}

var _ model.BaseChatModel = (*RotatingChatClient)(nil)
