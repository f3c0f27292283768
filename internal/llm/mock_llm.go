package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock for Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	args := m.Called(ctx, messages, temperature, maxTokens)
	return args.String(0), args.Error(1)
}
