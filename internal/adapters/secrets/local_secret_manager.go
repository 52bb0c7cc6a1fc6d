package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// masterKeySize is the AES-256 master key size in bytes
const masterKeySize = 32

// localSecretManager implements SecretManagerAdapter on the local filesystem.
// Values are sealed with AES-256-GCM under a master key; the secret path is
// bound as additional data so a file cannot be moved to another path.
type localSecretManager struct {
	basePath string
	aead     cipher.AEAD
	logger   *zap.Logger
}

// storedSecret is the on-disk JSON layout
type storedSecret struct {
	Value     string            `json:"value"` // base64(nonce || ciphertext)
	Version   int               `json:"version"`
	Tags      map[string]string `json:"tags,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewLocalSecretManager creates a local encrypted secret store.
// masterKeyHex must decode to 32 bytes.
func NewLocalSecretManager(basePath, masterKeyHex string, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	masterKey, err := hex.DecodeString(strings.TrimSpace(masterKeyHex))
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes (AES-256)", masterKeySize)
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &localSecretManager{
		basePath: basePath,
		aead:     aead,
		logger:   logger,
	}, nil
}

func (m *localSecretManager) filePath(secretPath string) (string, error) {
	clean := filepath.Clean("/" + secretPath)
	if clean == "/" {
		return "", fmt.Errorf("invalid secret path: %q", secretPath)
	}
	return filepath.Join(m.basePath, clean), nil
}

// GetSecret reads and decrypts a secret
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath, err := m.filePath(secretPath)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Reading secret from filesystem",
		zap.String("path", secretPath),
	)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var stored storedSecret
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse secret %s: %w", secretPath, err)
	}

	sealed, err := base64.StdEncoding.DecodeString(stored.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret %s: %w", secretPath, err)
	}

	nonceSize := m.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("encrypted secret %s is too short", secretPath)
	}
	plaintext, err := m.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], []byte(secretPath))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret %s: %w", secretPath, err)
	}

	return &ports.Secret{
		Value:     string(plaintext),
		Version:   strconv.Itoa(stored.Version),
		Metadata:  stored.Tags,
		CreatedAt: stored.CreatedAt.Format(time.RFC3339),
	}, nil
}

// PutSecret encrypts and stores a secret, bumping its version
func (m *localSecretManager) PutSecret(ctx context.Context, secretPath, secretValue string, tags map[string]string) (string, error) {
	filePath, err := m.filePath(secretPath)
	if err != nil {
		return "", err
	}

	m.logger.Info("Storing secret to filesystem",
		zap.String("path", secretPath),
	)

	version := 1
	if existing, err := m.GetSecret(ctx, secretPath); err == nil {
		if v, convErr := strconv.Atoi(existing.Version); convErr == nil {
			version = v + 1
		}
	}

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := m.aead.Seal(nonce, nonce, []byte(secretValue), []byte(secretPath))

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(storedSecret{
		Value:     base64.StdEncoding.EncodeToString(sealed),
		Version:   version,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write secret: %w", err)
	}

	return strconv.Itoa(version), nil
}

// DeleteSecret removes a secret from the filesystem
func (m *localSecretManager) DeleteSecret(ctx context.Context, secretPath string) error {
	filePath, err := m.filePath(secretPath)
	if err != nil {
		return err
	}

	m.logger.Info("Deleting secret from filesystem",
		zap.String("path", secretPath),
	)

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
