package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

// Default is the built-in tokenlens identity used when no explicit identity
// file is configured.
var Default = appidentity.Identity{
	BinaryName:  "tokenlens",
	Vendor:      "tokenlens",
	EnvPrefix:   "TOKENLENS_",
	ConfigName:  "tokenlens",
	Description: "Token market-data proxy with paced, cached upstream access",
}

// Get returns the identity loaded from FULMEN_APP_IDENTITY_PATH when that
// variable is set, otherwise a copy of Default.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) != "" {
		return appidentity.Get(ctx)
	}
	identity := Default
	return &identity, nil
}

// EnvPrefix returns the configured environment prefix, defaulting to TOKENLENS_.
func EnvPrefix(ctx context.Context) string {
	identity, err := Get(ctx)
	if err != nil || identity == nil || identity.EnvPrefix == "" {
		return Default.EnvPrefix
	}
	return identity.EnvPrefix
}
