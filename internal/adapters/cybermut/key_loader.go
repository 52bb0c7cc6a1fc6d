package cybermut

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/domain"
	"github.com/kevin07696/cybermut-service/pkg/resilience"
	"go.uber.org/zap"
)

// maxKeyFileSize bounds uploaded key files
const maxKeyFileSize = 64 << 10

// keyFilePattern captures the key from an exported key file
var keyFilePattern = regexp.MustCompile(`(?i).*([0-9a-zA-Z]{40}).*`)

// KeyPaths are the secret store paths of the merchant key sources.
// An empty path disables that source.
type KeyPaths struct {
	SecurityKey  string
	EncryptedKey string
	SHAKey       string
	Key          string
}

// defaultReadAttempts bounds secret store reads per key source
const defaultReadAttempts = 3

// KeyLoader reads merchant key material from a secret store and manages key file imports
type KeyLoader struct {
	store  ports.SecretManagerAdapter
	paths  KeyPaths
	logger *zap.Logger

	attempts int
	backoff  resilience.BackoffStrategy
}

// KeyLoaderOption customizes a KeyLoader
type KeyLoaderOption func(*KeyLoader)

// WithReadRetry overrides how failed secret store reads are retried
func WithReadRetry(attempts int, backoff resilience.BackoffStrategy) KeyLoaderOption {
	return func(l *KeyLoader) {
		l.attempts = attempts
		l.backoff = backoff
	}
}

// NewKeyLoader creates a key loader over a secret store
func NewKeyLoader(store ports.SecretManagerAdapter, paths KeyPaths, logger *zap.Logger, opts ...KeyLoaderOption) *KeyLoader {
	l := &KeyLoader{
		store:    store,
		paths:    paths,
		logger:   logger,
		attempts: defaultReadAttempts,
		backoff:  resilience.KeyStoreBackoff(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns a copy of base with every stored key source filled in.
// Missing secrets leave the corresponding field as configured.
func (l *KeyLoader) Load(ctx context.Context, base *domain.GatewayConfig) (*domain.GatewayConfig, error) {
	cfg := *base

	targets := []struct {
		path  string
		field *string
	}{
		{l.paths.SecurityKey, &cfg.SecurityKey},
		{l.paths.EncryptedKey, &cfg.EncryptedKey},
		{l.paths.SHAKey, &cfg.SHAKey},
		{l.paths.Key, &cfg.Key},
	}

	for _, t := range targets {
		if t.path == "" {
			continue
		}
		secret, err := l.read(ctx, t.path)
		if err != nil {
			if errors.Is(err, ports.ErrSecretNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load key %s: %w", t.path, err)
		}
		*t.field = secret.Value
	}

	return &cfg, nil
}

// read fetches one secret, retrying failures other than a missing secret
func (l *KeyLoader) read(ctx context.Context, path string) (*ports.Secret, error) {
	var secret *ports.Secret
	attempt := 0
	err := resilience.Retry(ctx, l.attempts, l.backoff,
		func(err error) bool { return !errors.Is(err, ports.ErrSecretNotFound) },
		func(ctx context.Context) error {
			attempt++
			s, err := l.store.GetSecret(ctx, path)
			if err != nil {
				if !errors.Is(err, ports.ErrSecretNotFound) {
					l.logger.Warn("Key store read failed",
						zap.String("path", path),
						zap.Int("attempt", attempt),
						zap.Error(err),
					)
				}
				return err
			}
			secret = s
			return nil
		})
	return secret, err
}

// ExtractKey returns the 40-character key contained in an exported key file
func ExtractKey(content []byte) (string, error) {
	m := keyFilePattern.FindSubmatch(content)
	if m == nil {
		return "", domain.NewConfigurationError(domain.ErrorCodeConfigKeyInvalid, "Error while getting the key", nil)
	}
	return string(m[1]), nil
}

// ImportKeyFile extracts the key from an exported key file and stores it as the encrypted key
func (l *KeyLoader) ImportKeyFile(ctx context.Context, r io.Reader) error {
	if l.paths.EncryptedKey == "" {
		return domain.NewConfigurationError(domain.ErrorCodeConfigInvalid, "no encrypted key path configured", nil)
	}

	content, err := io.ReadAll(io.LimitReader(r, maxKeyFileSize))
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := ExtractKey(content)
	if err != nil {
		l.logger.Warn("Key file does not contain a key")
		return err
	}

	// Reject files whose key would not decode when signing.
	if _, err := DeobfuscateKey(key); err != nil {
		return err
	}

	version, err := l.store.PutSecret(ctx, l.paths.EncryptedKey, key, map[string]string{"source": "key_file"})
	if err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	l.logger.Info("Imported merchant key file",
		zap.String("path", l.paths.EncryptedKey),
		zap.String("version", version),
	)
	return nil
}

// DeleteEncryptedKey clears the stored encrypted key
func (l *KeyLoader) DeleteEncryptedKey(ctx context.Context) error {
	if l.paths.EncryptedKey == "" {
		return nil
	}
	if err := l.store.DeleteSecret(ctx, l.paths.EncryptedKey); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	l.logger.Info("Deleted merchant key", zap.String("path", l.paths.EncryptedKey))
	return nil
}
