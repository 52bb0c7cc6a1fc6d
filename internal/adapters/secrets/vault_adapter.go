package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// vaultValueKey is the KV entry key holding the secret itself; other string keys are metadata
const vaultValueKey = "value"

// VaultConfig configures the HashiCorp Vault key store
type VaultConfig struct {
	Address    string
	AuthMethod string // token, approle or kubernetes
	Token      string

	RoleID   string
	SecretID string

	K8sTokenPath string
	K8sRole      string

	Namespace string // Vault Enterprise only
	MountPath string // KV engine mount, "secret" by default
	KVVersion string // "v1" or "v2"

	CacheTTL      time.Duration
	EnableCache   bool
	TLSSkipVerify bool
}

// DefaultVaultConfig returns a token-authenticated KV v2 configuration
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:      address,
		AuthMethod:   "token",
		MountPath:    "secret",
		KVVersion:    "v2",
		K8sTokenPath: "/var/run/secrets/kubernetes.io/serviceaccount/token",
		CacheTTL:     5 * time.Minute,
		EnableCache:  true,
	}
}

type vaultAdapter struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter creates a key store backed by a Vault KV engine
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	clientConfig := vault.DefaultConfig()
	clientConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := clientConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := vaultLogin(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault key store initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return newVaultAdapter(client, cfg, logger), nil
}

func newVaultAdapter(client *vault.Client, cfg *VaultConfig, logger *zap.Logger) *vaultAdapter {
	return &vaultAdapter{
		client: client,
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}
}

// vaultLogin sets the client token, logging in first for approle and kubernetes
func vaultLogin(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	var (
		loginPath string
		payload   map[string]interface{}
	)

	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("VAULT_TOKEN is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth")
		}
		loginPath = "auth/approle/login"
		payload = map[string]interface{}{"role_id": cfg.RoleID, "secret_id": cfg.SecretID}

	case "kubernetes":
		if cfg.K8sRole == "" {
			return fmt.Errorf("k8s_role is required for kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("failed to read service account token: %w", err)
		}
		loginPath = "auth/kubernetes/login"
		payload = map[string]interface{}{"jwt": strings.TrimSpace(string(jwt)), "role": cfg.K8sRole}

	default:
		return fmt.Errorf("unsupported Vault auth method %q", cfg.AuthMethod)
	}

	resp, err := client.Logical().WriteWithContext(ctx, loginPath, payload)
	if err != nil {
		return fmt.Errorf("%s login failed: %w", cfg.AuthMethod, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("%s login returned no token", cfg.AuthMethod)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

func (a *vaultAdapter) kv2() bool {
	return a.config.KVVersion != "v1"
}

func (a *vaultAdapter) dataPath(path string) string {
	if a.kv2() {
		return a.config.MountPath + "/data/" + path
	}
	return a.config.MountPath + "/" + path
}

// GetSecret reads the latest version of a KV entry
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	raw, err := a.client.Logical().ReadWithContext(ctx, a.dataPath(path))
	if err != nil {
		a.logger.Error("Vault read failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}

	secret, err := a.decode(path, raw)
	if err != nil {
		return nil, err
	}

	a.cache.set(path, secret)
	return secret, nil
}

// decode turns a KV read into a Secret. A missing entry, or a KV v2 entry whose
// latest version was deleted (null data), is reported as not found.
func (a *vaultAdapter) decode(path string, raw *vault.Secret) (*ports.Secret, error) {
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, path)
	}

	entry := raw.Data
	secret := &ports.Secret{Version: "1", Metadata: make(map[string]string)}

	if a.kv2() {
		data, ok := raw.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, path)
		}
		entry = data

		if meta, ok := raw.Data["metadata"].(map[string]interface{}); ok {
			if v, ok := meta["version"].(json.Number); ok {
				secret.Version = v.String()
			}
			if created, ok := meta["created_time"].(string); ok {
				secret.CreatedAt = created
			}
		}
	}

	value, _ := entry[vaultValueKey].(string)
	if value == "" {
		return nil, fmt.Errorf("entry %s in Vault has no %q key", path, vaultValueKey)
	}
	secret.Value = value

	for k, v := range entry {
		if s, ok := v.(string); ok && k != vaultValueKey {
			secret.Metadata[k] = s
		}
	}
	return secret, nil
}

// PutSecret writes a new version of a KV entry, metadata alongside the value
func (a *vaultAdapter) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	defer a.cache.invalidate(path)

	entry := map[string]interface{}{vaultValueKey: value}
	for k, v := range metadata {
		entry[k] = v
	}

	body := entry
	if a.kv2() {
		body = map[string]interface{}{"data": entry}
	}

	resp, err := a.client.Logical().WriteWithContext(ctx, a.dataPath(path), body)
	if err != nil {
		a.logger.Error("Vault write failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to write secret to Vault: %w", err)
	}

	version := "1"
	if a.kv2() && resp != nil {
		if v, ok := resp.Data["version"].(json.Number); ok {
			version = v.String()
		}
	}

	a.logger.Info("Stored secret in Vault", zap.String("path", path), zap.String("version", version))
	return version, nil
}

// DeleteSecret removes a KV entry; on KV v2 every version and the metadata go with it
func (a *vaultAdapter) DeleteSecret(ctx context.Context, path string) error {
	defer a.cache.invalidate(path)

	target := a.dataPath(path)
	if a.kv2() {
		target = a.config.MountPath + "/metadata/" + path
	}

	if _, err := a.client.Logical().DeleteWithContext(ctx, target); err != nil {
		return fmt.Errorf("failed to delete secret from Vault: %w", err)
	}

	a.logger.Warn("Deleted secret from Vault", zap.String("path", path))
	return nil
}
