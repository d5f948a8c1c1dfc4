package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

// ScriptedClient replays a fixed sequence of responses, then repeats the
// last one. Handy for driving multi-step reasoning in tests.
type ScriptedClient struct {
	Responses []string
	Calls     []CompletionRequest
}

func (s *ScriptedClient) Name() string { return "scripted" }

func (s *ScriptedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.Calls = append(s.Calls, req)
	if len(s.Responses) == 0 {
		return &CompletionResponse{Content: ""}, nil
	}
	idx := len(s.Calls) - 1
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	return &CompletionResponse{Content: s.Responses[idx]}, nil
}
