package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., merchant security key)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for storing merchant key material in a secret store.
// Backends: local encrypted files, AWS Secrets Manager, GCP Secret Manager, HashiCorp Vault.
// Implementations handle authentication with the backend and cache reads with a TTL.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Paths are slash separated, e.g. "cybermut/security_key". Each backend maps them:
	//   - Local: file under the base directory
	//   - AWS: secret name as is
	//   - GCP: secret id with "/" replaced by "-", latest version
	//   - Vault: KV entry under the configured mount
	// Returns an error wrapping ErrSecretNotFound when the secret does not exist.
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns the new version identifier
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)

	// DeleteSecret removes a secret. Deleting a missing secret is not an error.
	DeleteSecret(ctx context.Context, path string) error
}
