package mock

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// MockSecretManager is an in-memory secret store for local development and tests
type MockSecretManager struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	secrets map[string]*ports.Secret
}

// NewMockSecretManager creates a new mock secret manager, optionally seeded with values
func NewMockSecretManager(logger *zap.Logger, seed map[string]string) *MockSecretManager {
	m := &MockSecretManager{
		logger:  logger,
		secrets: make(map[string]*ports.Secret),
	}
	for path, value := range seed {
		m.secrets[path] = &ports.Secret{Value: value, Version: "1"}
	}
	return m
}

// GetSecret returns a stored secret
func (m *MockSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, ok := m.secrets[secretPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, secretPath)
	}

	copied := *secret
	return &copied, nil
}

// PutSecret stores a secret and bumps its version
func (m *MockSecretManager) PutSecret(ctx context.Context, secretPath, value string, metadata map[string]string) (string, error) {
	m.logger.Warn("Using mock secret manager - NOT for production use",
		zap.String("secret_path", secretPath),
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	next := 1
	if existing, ok := m.secrets[secretPath]; ok {
		if v, err := strconv.Atoi(existing.Version); err == nil {
			next = v + 1
		}
	}

	version := strconv.Itoa(next)
	m.secrets[secretPath] = &ports.Secret{
		Value:     value,
		Version:   version,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return version, nil
}

// DeleteSecret removes a secret
func (m *MockSecretManager) DeleteSecret(ctx context.Context, secretPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.secrets, secretPath)
	return nil
}
