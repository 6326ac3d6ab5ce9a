package secrets_test

import (
	"context"
	"testing"

	"github.com/kevin07696/reconciliation-service/internal/adapters/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnvSecretManager_GetSecret(t *testing.T) {
	t.Setenv("DB_PASSWORD", "local-dev-password")

	manager := secrets.NewEnvSecretManager(zap.NewNop())

	secret, err := manager.GetSecret(context.Background(), "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "local-dev-password", secret.Value)
	assert.Equal(t, "env", secret.Version)
}

func TestEnvSecretManager_MissingVariable(t *testing.T) {
	manager := secrets.NewEnvSecretManager(zap.NewNop())

	secret, err := manager.GetSecret(context.Background(), "UNSET_SECRET_VARIABLE")
	require.Error(t, err)
	assert.Nil(t, secret)
}
