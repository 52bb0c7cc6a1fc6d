package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/cybermut-service/internal/adapters/mock"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig builds the key store selected by the configuration. The returned
// close function releases client resources and is never nil.
func NewFromConfig(ctx context.Context, cfg config.KeyStoreConfig, logger *zap.Logger) (ports.SecretManagerAdapter, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "local":
		store, err := NewLocalSecretManager(cfg.Local.BasePath, cfg.Local.MasterKey, logger)
		return store, noop, err

	case "aws":
		awsCfg := DefaultAWSSecretsManagerConfig(cfg.AWS.Region)
		awsCfg.Profile = cfg.AWS.Profile
		awsCfg.Endpoint = cfg.AWS.Endpoint
		awsCfg.RecoveryWindowDays = cfg.AWS.RecoveryWindowDays
		awsCfg.CacheTTL = cfg.CacheTTL
		store, err := NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		return store, noop, err

	case "vault":
		vaultCfg := DefaultVaultConfig(cfg.Vault.Address)
		vaultCfg.AuthMethod = cfg.Vault.AuthMethod
		vaultCfg.Token = cfg.Vault.Token
		vaultCfg.RoleID = cfg.Vault.RoleID
		vaultCfg.SecretID = cfg.Vault.SecretID
		vaultCfg.K8sRole = cfg.Vault.K8sRole
		vaultCfg.Namespace = cfg.Vault.Namespace
		vaultCfg.MountPath = cfg.Vault.MountPath
		vaultCfg.KVVersion = cfg.Vault.KVVersion
		vaultCfg.CacheTTL = cfg.CacheTTL
		store, err := NewVaultAdapter(ctx, vaultCfg, logger)
		return store, noop, err

	case "gcp":
		gcpCfg := DefaultGCPSecretManagerConfig(cfg.GCP.ProjectID)
		gcpCfg.CacheTTL = cfg.CacheTTL
		store, closeFn, err := NewGCPSecretManager(ctx, gcpCfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, closeFn, nil

	case "mock":
		logger.Warn("Using MOCK key store - NOT for production use!")
		return mock.NewMockSecretManager(logger, nil), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown key store backend %q", cfg.Backend)
	}
}
