package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	"go.uber.org/zap"
)

// envSecretManager implements SecretManagerAdapter using environment variables
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type envSecretManager struct {
	logger *zap.Logger
}

// NewEnvSecretManager creates a secret manager backed by environment variables
func NewEnvSecretManager(logger *zap.Logger) ports.SecretManagerAdapter {
	return &envSecretManager{logger: logger}
}

// GetSecret reads the secret from the environment variable named by path
func (m *envSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	value := os.Getenv(path)
	if value == "" {
		return nil, fmt.Errorf("secret not found in environment: %s", path)
	}

	m.logger.Debug("Secret read from environment", zap.String("path", path))

	return &ports.Secret{
		Value:     value,
		Version:   "env",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// secretCache implements a simple in-memory cache for secrets
type secretCache struct {
	entries map[string]*cacheEntry
	enabled bool
	ttl     time.Duration
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func (c *secretCache) get(key string) *ports.Secret {
	if !c.enabled {
		return nil
	}

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil
	}

	return entry.secret
}

func (c *secretCache) set(key string, secret *ports.Secret) {
	if !c.enabled {
		return
	}

	c.entries[key] = &cacheEntry{
		secret:    secret,
		expiresAt: time.Now().Add(c.ttl),
	}
}
