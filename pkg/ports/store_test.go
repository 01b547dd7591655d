package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports/tests"
)

// MockStore is an in-memory implementation of ResultStore for testing purposes.
type MockStore struct {
	data map[string]*domain.Result
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Result),
	}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, result *domain.Result) error {
	copied := *result
	m.data[sessionID] = &copied
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Result, error) {
	result, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	return result, nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestResultStore_Contract(t *testing.T) {
	// This test verifies that the MockStore complies with the ResultStore logic.
	// It serves as a contract test for future implementations (Adapters).
	tests.RunResultStoreContract(t, NewMockStore())
}
