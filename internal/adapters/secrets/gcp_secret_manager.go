package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerConfig contains configuration for GCP Secret Manager
type GCPSecretManagerConfig struct {
	ProjectID string        // GCP Project ID (e.g., "my-project-123")
	CacheTTL  time.Duration // How long to cache secrets in memory
}

// DefaultGCPSecretManagerConfig returns defaults for GCP Secret Manager
func DefaultGCPSecretManagerConfig(projectID string) *GCPSecretManagerConfig {
	return &GCPSecretManagerConfig{
		ProjectID: projectID,
		CacheTTL:  5 * time.Minute,
	}
}

// gcpSecretManager implements SecretManagerAdapter for Google Cloud Secret Manager.
// GCP secret ids cannot contain "/", so paths are flattened with "-".
type gcpSecretManager struct {
	client    *secretmanager.Client
	projectID string
	logger    *zap.Logger
	cache     *secretCache
}

// NewGCPSecretManager creates a GCP Secret Manager adapter. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS, workload identity or application default credentials.
func NewGCPSecretManager(ctx context.Context, cfg *GCPSecretManagerConfig, logger *zap.Logger) (ports.SecretManagerAdapter, func() error, error) {
	if cfg.ProjectID == "" {
		return nil, nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	sm := &gcpSecretManager{
		client:    client,
		projectID: cfg.ProjectID,
		logger:    logger,
		cache:     newSecretCache(true, cfg.CacheTTL),
	}
	return sm, client.Close, nil
}

func gcpSecretID(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}

func (sm *gcpSecretManager) secretName(path string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, gcpSecretID(path))
}

func isGCPNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// GetSecret retrieves the latest version of a secret
func (sm *gcpSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := sm.cache.get(path); cached != nil {
		sm.logger.Debug("Secret cache hit", zap.String("path", path))
		return cached, nil
	}

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: sm.secretName(path) + "/versions/latest",
	})
	if err != nil {
		if isGCPNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, path)
		}
		sm.logger.Error("Failed to access GCP secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}

	secret := &ports.Secret{
		Value:   string(result.GetPayload().GetData()),
		Version: extractVersionFromName(result.GetName()),
		Metadata: map[string]string{
			"gcp_project_id": sm.projectID,
			"gcp_secret":     gcpSecretID(path),
		},
	}

	sm.cache.set(path, secret)
	return secret, nil
}

// PutSecret adds a new version, creating the secret on first use
func (sm *gcpSecretManager) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	sm.logger.Info("Creating/updating secret in GCP", zap.String("path", path))
	defer sm.cache.invalidate(path)

	addReq := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  sm.secretName(path),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}

	result, err := sm.client.AddSecretVersion(ctx, addReq)
	if err != nil {
		if !isGCPNotFound(err) {
			return "", fmt.Errorf("failed to add version to GCP secret %s: %w", path, err)
		}

		_, err = sm.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   fmt.Sprintf("projects/%s", sm.projectID),
			SecretId: gcpSecretID(path),
			Secret: &secretmanagerpb.Secret{
				Labels: metadata,
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			sm.logger.Error("Failed to create GCP secret",
				zap.String("path", path),
				zap.Error(err),
			)
			return "", fmt.Errorf("failed to create GCP secret %s: %w", path, err)
		}

		result, err = sm.client.AddSecretVersion(ctx, addReq)
		if err != nil {
			return "", fmt.Errorf("failed to add version to GCP secret %s: %w", path, err)
		}
	}

	return extractVersionFromName(result.GetName()), nil
}

// DeleteSecret deletes a secret and all its versions
func (sm *gcpSecretManager) DeleteSecret(ctx context.Context, path string) error {
	sm.logger.Warn("Deleting GCP secret", zap.String("path", path))
	defer sm.cache.invalidate(path)

	err := sm.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{
		Name: sm.secretName(path),
	})
	if err != nil && !isGCPNotFound(err) {
		return fmt.Errorf("failed to delete GCP secret %s: %w", path, err)
	}
	return nil
}

// extractVersionFromName returns the trailing segment of
// projects/{project}/secrets/{secret}/versions/{version}
func extractVersionFromName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return "unknown"
}
