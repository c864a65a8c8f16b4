package appid

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsDefaultIdentity(t *testing.T) {
	t.Setenv(appidentity.EnvIdentityPath, "")

	identity, err := Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tokenlens", identity.BinaryName)
	assert.Equal(t, "TOKENLENS_", identity.EnvPrefix)

	identity.BinaryName = "mutated"
	assert.Equal(t, "tokenlens", Default.BinaryName)
}

func TestGetHonorsExplicitIdentityPath(t *testing.T) {
	appidentity.Reset()
	t.Cleanup(appidentity.Reset)

	missing := filepath.Join(t.TempDir(), "missing-app.yaml")
	t.Setenv(appidentity.EnvIdentityPath, missing)

	_, err := Get(context.Background())
	require.Error(t, err)

	var notFound *appidentity.NotFoundError
	assert.True(t, errors.As(err, &notFound), "expected NotFoundError, got %T", err)
	assert.Equal(t, "TOKENLENS_", EnvPrefix(context.Background()))
}
