package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeVaultKV serves the subset of the KV v2 HTTP API the adapter uses
type fakeVaultKV struct {
	mu       sync.Mutex
	entries  map[string]map[string]interface{}
	versions map[string]int
	reads    int
}

func newFakeVaultKV() *fakeVaultKV {
	return &fakeVaultKV{
		entries:  make(map[string]map[string]interface{}),
		versions: make(map[string]int),
	}
}

func (f *fakeVaultKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const dataPrefix = "/v1/secret/data/"
	const metadataPrefix = "/v1/secret/metadata/"

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, dataPrefix):
		f.reads++
		path := strings.TrimPrefix(r.URL.Path, dataPrefix)
		entry, ok := f.entries[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		writeJSON(w, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     entry,
				"metadata": map[string]interface{}{"version": f.versions[path], "created_time": "2024-01-02T03:04:05Z"},
			},
		})

	case (r.Method == http.MethodPut || r.Method == http.MethodPost) && strings.HasPrefix(r.URL.Path, dataPrefix):
		path := strings.TrimPrefix(r.URL.Path, dataPrefix)
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.entries[path] = body.Data
		f.versions[path]++
		writeJSON(w, map[string]interface{}{"data": map[string]interface{}{"version": f.versions[path]}})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, metadataPrefix):
		path := strings.TrimPrefix(r.URL.Path, metadataPrefix)
		delete(f.entries, path)
		delete(f.versions, path)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestVaultAdapter(t *testing.T, kv *fakeVaultKV, cacheTTL time.Duration) *vaultAdapter {
	t.Helper()

	server := httptest.NewServer(kv)
	t.Cleanup(server.Close)

	clientConfig := vault.DefaultConfig()
	clientConfig.Address = server.URL
	clientConfig.MaxRetries = 0
	client, err := vault.NewClient(clientConfig)
	require.NoError(t, err)
	client.SetToken("test-token")

	cfg := DefaultVaultConfig(server.URL)
	cfg.CacheTTL = cacheTTL
	cfg.EnableCache = cacheTTL > 0
	return newVaultAdapter(client, cfg, zaptest.NewLogger(t))
}

func TestVaultAdapter_PutGetDelete(t *testing.T) {
	kv := newFakeVaultKV()
	adapter := newTestVaultAdapter(t, kv, 0)
	ctx := context.Background()

	_, err := adapter.GetSecret(ctx, "cybermut/security_key")
	assert.ErrorIs(t, err, ports.ErrSecretNotFound)

	version, err := adapter.PutSecret(ctx, "cybermut/security_key", "0123456789abcdef", map[string]string{"source": "key_file"})
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	version, err = adapter.PutSecret(ctx, "cybermut/security_key", "fedcba9876543210", nil)
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	secret, err := adapter.GetSecret(ctx, "cybermut/security_key")
	require.NoError(t, err)
	assert.Equal(t, "fedcba9876543210", secret.Value)
	assert.Equal(t, "2", secret.Version)
	assert.Equal(t, "2024-01-02T03:04:05Z", secret.CreatedAt)

	require.NoError(t, adapter.DeleteSecret(ctx, "cybermut/security_key"))
	_, err = adapter.GetSecret(ctx, "cybermut/security_key")
	assert.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestVaultAdapter_MetadataRoundTrip(t *testing.T) {
	kv := newFakeVaultKV()
	adapter := newTestVaultAdapter(t, kv, 0)
	ctx := context.Background()

	_, err := adapter.PutSecret(ctx, "cybermut/key_encrypted", "blob", map[string]string{"source": "key_file"})
	require.NoError(t, err)

	secret, err := adapter.GetSecret(ctx, "cybermut/key_encrypted")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"source": "key_file"}, secret.Metadata)
}

func TestVaultAdapter_CacheInvalidatedOnWrite(t *testing.T) {
	kv := newFakeVaultKV()
	adapter := newTestVaultAdapter(t, kv, time.Minute)
	ctx := context.Background()

	_, err := adapter.PutSecret(ctx, "cybermut/sha_key", "first", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		secret, err := adapter.GetSecret(ctx, "cybermut/sha_key")
		require.NoError(t, err)
		assert.Equal(t, "first", secret.Value)
	}
	assert.Equal(t, 1, kv.reads)

	_, err = adapter.PutSecret(ctx, "cybermut/sha_key", "second", nil)
	require.NoError(t, err)

	secret, err := adapter.GetSecret(ctx, "cybermut/sha_key")
	require.NoError(t, err)
	assert.Equal(t, "second", secret.Value)
	assert.Equal(t, 2, kv.reads)
}

func TestVaultLogin(t *testing.T) {
	tests := []struct {
		name    string
		cfg     VaultConfig
		wantErr string
	}{
		{name: "token", cfg: VaultConfig{AuthMethod: "token", Token: "s.abc"}},
		{name: "token missing", cfg: VaultConfig{AuthMethod: "token"}, wantErr: "VAULT_TOKEN"},
		{name: "approle missing secret id", cfg: VaultConfig{AuthMethod: "approle", RoleID: "role"}, wantErr: "role_id and secret_id"},
		{name: "kubernetes missing role", cfg: VaultConfig{AuthMethod: "kubernetes"}, wantErr: "k8s_role"},
		{name: "unknown method", cfg: VaultConfig{AuthMethod: "ldap"}, wantErr: "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := vault.NewClient(vault.DefaultConfig())
			require.NoError(t, err)

			err = vaultLogin(context.Background(), client, &tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Token, client.Token())
		})
	}
}
