package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

// ScriptedClient returns a mock that replies with each response in turn and
// records the requests it saw. Calls past the end of the script repeat the
// last response.
func ScriptedClient(responses ...string) (*MockClient, *[]CompletionRequest) {
	var seen []CompletionRequest
	m := &MockClient{ProviderName: "scripted"}
	m.CompleteFunc = func(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
		i := len(seen)
		seen = append(seen, req)
		if len(responses) == 0 {
			return &CompletionResponse{}, nil
		}
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return &CompletionResponse{Content: responses[i], Model: "scripted"}, nil
	}
	return m, &seen
}
