package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/marquee-ai/marquee/internal/version"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient is a direct HTTP client for the Gemini generateContent API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiClient creates a Gemini client. baseURL may be empty to use the
// public endpoint.
func NewGeminiClient(apiKey, model, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (g *GeminiClient) Name() string { return "gemini" }

// Complete sends a generateContent request.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(g.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	model := req.Model
	if model == "" || model == g.Name() {
		model = g.model
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, model, url.QueryEscape(g.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: "read response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: g.Name(), Code: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("gemini: parse response: %w", err)
	}
	if len(result.Candidates) == 0 {
		return nil, &ProviderError{Provider: g.Name(), Message: "no candidates in response"}
	}

	cand := result.Candidates[0]
	var content bytes.Buffer
	for _, part := range cand.Content.Parts {
		content.WriteString(part.Text)
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: cand.FinishReason,
		Model:      model,
		Duration:   time.Since(start),
		Usage: Usage{
			InputTokens:  result.UsageMetadata.PromptTokenCount,
			OutputTokens: result.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

func (g *GeminiClient) buildRequestBody(req CompletionRequest) geminiRequest {
	body := geminiRequest{}

	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	body.GenerationConfig.Temperature = req.Temperature
	return body
}

// Request/response structures

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
		Temperature     *float64 `json:"temperature,omitempty"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// apiErrorMessage extracts a short error message from a provider error body,
// falling back to the raw body when it is not the usual JSON shape.
func apiErrorMessage(body []byte) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	const max = 300
	s := string(body)
	if len(s) > max {
		s = s[:max]
	}
	return s
}
