package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretManagerAdapter defines the port for retrieving runtime secrets
// (database password, cron secret). Supported backends: environment/local
// files for development, AWS Secrets Manager and HashiCorp Vault for
// production. Implementations handle authentication and caching.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name. Path format depends on
	// the backend:
	//   - env:   plain environment variable name
	//   - AWS:   "reconciliation-service/{name}" or full ARN
	//   - Vault: "secret/data/reconciliation-service/{name}"
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
