package cybermut

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/cybermut-service/internal/adapters/mock"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/domain"
	"github.com/kevin07696/cybermut-service/pkg/resilience"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockSecretStore is a testify mock of the secret manager port
type mockSecretStore struct {
	testifymock.Mock
}

func (m *mockSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Secret), args.Error(1)
}

func (m *mockSecretStore) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, path, value, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockSecretStore) DeleteSecret(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

var testKeyPaths = KeyPaths{
	SecurityKey:  "cybermut/security_key",
	EncryptedKey: "cybermut/key_encrypted",
	SHAKey:       "cybermut/sha_key",
	Key:          "cybermut/key",
}

func TestKeyLoader_Load(t *testing.T) {
	store := mock.NewMockSecretManager(zaptest.NewLogger(t), map[string]string{
		"cybermut/key_encrypted": "0123456789abcdef0123456789abcdef012345X7",
		"cybermut/sha_key":       testSHAKey,
	})
	loader := NewKeyLoader(store, testKeyPaths, zaptest.NewLogger(t))

	base := &domain.GatewayConfig{MerchantID: "1234567", Key: testHexKey}
	cfg, err := loader.Load(context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, "1234567", cfg.MerchantID)
	assert.Equal(t, "", cfg.SecurityKey)
	assert.Equal(t, "0123456789abcdef0123456789abcdef012345X7", cfg.EncryptedKey)
	assert.Equal(t, testSHAKey, cfg.SHAKey)
	assert.Equal(t, testHexKey, cfg.Key, "missing secrets keep the configured value")
	assert.Empty(t, base.EncryptedKey, "base config is not mutated")

	material, err := ResolveKeyMaterial(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.KeyKindObfuscatedHex, material.Kind)
}

func TestKeyLoader_Load_StoreFailure(t *testing.T) {
	store := new(mockSecretStore)
	store.On("GetSecret", testifymock.Anything, "cybermut/security_key").
		Return(nil, errors.New("access denied"))

	loader := NewKeyLoader(store, KeyPaths{SecurityKey: "cybermut/security_key"}, zaptest.NewLogger(t),
		WithReadRetry(3, &resilience.FixedBackoff{Delay: time.Millisecond}))
	_, err := loader.Load(context.Background(), &domain.GatewayConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	store.AssertNumberOfCalls(t, "GetSecret", 3)
}

func TestKeyLoader_Load_NotFoundIsSkipped(t *testing.T) {
	store := new(mockSecretStore)
	store.On("GetSecret", testifymock.Anything, "cybermut/security_key").
		Return(nil, fmt.Errorf("%w: cybermut/security_key", ports.ErrSecretNotFound))

	loader := NewKeyLoader(store, KeyPaths{SecurityKey: "cybermut/security_key"}, zaptest.NewLogger(t))
	cfg, err := loader.Load(context.Background(), &domain.GatewayConfig{SecurityKey: testSecurityKey})

	require.NoError(t, err)
	assert.Equal(t, testSecurityKey, cfg.SecurityKey)
	store.AssertNumberOfCalls(t, "GetSecret", 1)
}

func TestKeyLoader_Load_RecoversFromTransientFailure(t *testing.T) {
	store := new(mockSecretStore)
	store.On("GetSecret", testifymock.Anything, "cybermut/security_key").
		Return(nil, errors.New("throttled")).Once()
	store.On("GetSecret", testifymock.Anything, "cybermut/security_key").
		Return(&ports.Secret{Value: testSecurityKey, Version: "2"}, nil).Once()

	loader := NewKeyLoader(store, KeyPaths{SecurityKey: "cybermut/security_key"}, zaptest.NewLogger(t),
		WithReadRetry(3, &resilience.FixedBackoff{Delay: time.Millisecond}))
	cfg, err := loader.Load(context.Background(), &domain.GatewayConfig{})

	require.NoError(t, err)
	assert.Equal(t, testSecurityKey, cfg.SecurityKey)
	store.AssertExpectations(t)
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare key",
			content: "0123456789abcdef0123456789abcdef012345X7",
			want:    "0123456789abcdef0123456789abcdef012345X7",
		},
		{
			name:    "exported file with header",
			content: "TPE 1234567\n0123456789abcdef0123456789abcdef012345X7\n",
			want:    "0123456789abcdef0123456789abcdef012345X7",
		},
		{
			name:    "greedy prefix keeps the last 40 characters of a longer run",
			content: "xx0123456789abcdef0123456789abcdef012345X7",
			want:    "0123456789abcdef0123456789abcdef012345X7",
		},
		{
			name:    "no key",
			content: "short 0123456789",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractKey([]byte(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Error while getting the key")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyLoader_ImportAndDelete(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockSecretManager(zaptest.NewLogger(t), nil)
	loader := NewKeyLoader(store, testKeyPaths, zaptest.NewLogger(t))

	err := loader.ImportKeyFile(ctx, strings.NewReader("header\n0123456789abcdef0123456789abcdef012345X7\n"))
	require.NoError(t, err)

	secret, err := store.GetSecret(ctx, "cybermut/key_encrypted")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef012345X7", secret.Value)
	assert.Equal(t, "key_file", secret.Metadata["source"])

	err = loader.ImportKeyFile(ctx, strings.NewReader("nothing here"))
	assert.True(t, domain.IsConfigurationError(err))

	err = loader.ImportKeyFile(ctx, strings.NewReader("ZZ23456789abcdef0123456789abcdef01234567"))
	assert.True(t, domain.IsConfigurationError(err), "keys that cannot decode are rejected")

	require.NoError(t, loader.DeleteEncryptedKey(ctx))
	_, err = store.GetSecret(ctx, "cybermut/key_encrypted")
	assert.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestKeyLoader_ImportStoreFailure(t *testing.T) {
	store := new(mockSecretStore)
	store.On("PutSecret", testifymock.Anything, "cybermut/key_encrypted", "0123456789abcdef0123456789abcdef012345X7", testifymock.Anything).
		Return("", errors.New("throttled"))

	loader := NewKeyLoader(store, testKeyPaths, zaptest.NewLogger(t))
	err := loader.ImportKeyFile(context.Background(), strings.NewReader("0123456789abcdef0123456789abcdef012345X7"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	store.AssertExpectations(t)
}
