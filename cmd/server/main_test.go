package main

import (
	"bytes"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"feedback-backend/internal/config"
	"feedback-backend/internal/identity"
	"feedback-backend/internal/models"
)

func TestMintTokenRoundTrip(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"feedback-backend", "--jwt-secret", "s3cret", "mint-token", "--user", "mod", "--role", "moderator"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out.String()))
	id, err := identity.NewJWTResolver("s3cret").Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "mod", Role: models.RoleModerator}, id)
}

func TestMintTokenRequiresSecret(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"feedback-backend", "mint-token", "--user", "mod"})
	assert.Error(t, err)
}

func TestConfigFromCLI(t *testing.T) {
	app := newApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--blocklist", "foo, bar", "--max-length", "42", "--auth-mode", "jwt", "--jwt-secret", "x"}))

	cfg, err := configFromCLI(cli.NewContext(app, set, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, cfg.Blocklist)
	assert.Equal(t, 42, cfg.MaxLength)
	assert.Equal(t, config.AuthModeJWT, cfg.AuthMode)

	resolver, err := newResolver(cfg)
	require.NoError(t, err)
	assert.IsType(t, &identity.JWTResolver{}, resolver)
}

func TestConfigFromCLIRejectsInvalid(t *testing.T) {
	app := newApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--auth-mode", "jwt"}))

	_, err := configFromCLI(cli.NewContext(app, set, nil))
	assert.Error(t, err)
}
