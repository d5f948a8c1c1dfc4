package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marquee-ai/marquee/internal/version"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIClient speaks the chat-completions API. It also serves any
// compatible endpoint, including Ollama's /v1 surface, via baseURL.
type OpenAIClient struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a chat-completions client. name is the provider
// name reported to the registry ("openai", "ollama", ...). baseURL may be
// empty for api.openai.com; apiKey may be empty for local endpoints.
func NewOpenAIClient(name, apiKey, model, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		name:    name,
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (o *OpenAIClient) Name() string { return o.name }

// Complete sends a chat-completions request.
func (o *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" || model == o.name {
		model = o.model
	}

	body := openAIRequest{Model: model, Temperature: req.Temperature}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.System != "" {
		body.Messages = append(body.Messages, Message{Role: RoleSystem, Content: req.System})
	}
	body.Messages = append(body.Messages, req.Messages...)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", o.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", o.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: o.name, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: o.name, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: o.name, Code: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	var result openAIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", o.name, err)
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: o.name, Message: "no choices in response"}
	}

	choice := result.Choices[0]
	return &CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		Model:      result.Model,
		Duration:   time.Since(start),
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

// Request/response structures

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
