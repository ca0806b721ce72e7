package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	MistralName    = "mistral"
	MistralBaseURL = "https://api.mistral.ai/v1"

	MistralDefaultModel       = "mistral-large-latest"
	MistralDefaultVisionModel = "pixtral-large-latest"
)

// MistralConfig holds configuration for the Mistral chat/vision client.
type MistralConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// MistralClient implements LLMClient and VisionClient against the Mistral
// chat completions API. The client performs a single attempt per call;
// retry policy belongs to the caller.
type MistralClient struct {
	apiKey      string
	baseURL     string
	model       string
	visionModel string
	client      *http.Client
}

// NewMistralClient creates a new Mistral client.
func NewMistralClient(cfg MistralConfig) *MistralClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralDefaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = MistralDefaultVisionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &MistralClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the client identifier.
func (c *MistralClient) Name() string {
	return MistralName
}

// Chat sends a chat completion request.
func (c *MistralClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	mReq := mistralChatRequest{
		Model:       model,
		Messages:    make([]mistralMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		mReq.Messages = append(mReq.Messages, mistralMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if req.JSONMode {
		mReq.ResponseFormat = &mistralResponseFormat{Type: "json_object"}
	}

	mResp, err := c.doRequest(ctx, &mReq)
	if err != nil {
		return nil, err
	}

	if len(mResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &ChatResult{
		Content:          mResp.Choices[0].Message.Content,
		PromptTokens:     mResp.Usage.PromptTokens,
		CompletionTokens: mResp.Usage.CompletionTokens,
		TotalTokens:      mResp.Usage.TotalTokens,
		ExecutionTime:    time.Since(start),
		Provider:         MistralName,
		ModelUsed:        mResp.Model,
		RequestID:        requestID,
	}, nil
}

// DescribeImage sends a page image to the vision model and returns its
// free-text description.
func (c *MistralClient) DescribeImage(ctx context.Context, image []byte) (string, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	mReq := mistralChatRequest{
		Model: c.visionModel,
		Messages: []mistralMessage{
			{
				Role: "user",
				Content: []mistralContent{
					{Type: "text", Text: "Change this image to a json object."},
					{Type: "image_url", ImageURL: "data:image/png;base64," + imageBase64},
				},
			},
		},
	}

	mResp, err := c.doRequest(ctx, &mReq)
	if err != nil {
		return "", err
	}
	if len(mResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return mResp.Choices[0].Message.Content, nil
}

// doRequest makes a single HTTP request to the Mistral API.
func (c *MistralClient) doRequest(ctx context.Context, body *mistralChatRequest) (*mistralChatResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp mistralErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &APIError{Provider: MistralName, StatusCode: resp.StatusCode, Message: errResp.Error.Message}
		}
		return nil, &APIError{Provider: MistralName, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var mResp mistralChatResponse
	if err := json.Unmarshal(respBody, &mResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &mResp, nil
}

// Mistral API types

type mistralChatRequest struct {
	Model          string                 `json:"model"`
	Messages       []mistralMessage       `json:"messages"`
	Temperature    float64                `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat *mistralResponseFormat `json:"response_format,omitempty"`
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []mistralContent
}

type mistralContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type mistralResponseFormat struct {
	Type string `json:"type"`
}

type mistralChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Verify interfaces
var (
	_ LLMClient    = (*MistralClient)(nil)
	_ VisionClient = (*MistralClient)(nil)
)
