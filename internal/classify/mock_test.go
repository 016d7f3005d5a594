package classify_test

import (
	"context"
	"sync"
)

type completeJSONCall struct {
	SystemPrompt string
	UserPrompt   string
}

type completerMock struct {
	CompleteJSONFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	mu    sync.Mutex
	calls []completeJSONCall
}

func (m *completerMock) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.CompleteJSONFunc == nil {
		panic("completerMock.CompleteJSONFunc: method is nil but CompleteJSON was just called")
	}
	m.mu.Lock()
	m.calls = append(m.calls, completeJSONCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	m.mu.Unlock()
	return m.CompleteJSONFunc(ctx, systemPrompt, userPrompt)
}

func (m *completerMock) CompleteJSONCalls() []completeJSONCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]completeJSONCall(nil), m.calls...)
}

// replies returns a CompleteJSONFunc answering with outputs in order,
// repeating the last one.
func replies(outputs ...string) func(context.Context, string, string) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, string, string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		out := outputs[min(i, len(outputs)-1)]
		i++
		return out, nil
	}
}
