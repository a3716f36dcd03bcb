package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const installedCredentials = `{"installed":{
	"client_id":"id.apps.googleusercontent.com",
	"client_secret":"secret",
	"auth_uri":"https://accounts.google.com/o/oauth2/auth",
	"token_uri":"https://oauth2.googleapis.com/token",
	"redirect_uris":["http://localhost"]
}}`

func writeCredentials(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "google-client.json")
	require.NoError(t, os.WriteFile(path, []byte(installedCredentials), 0o600))
	return path
}

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig(writeCredentials(t))
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, Scopes, cfg.Scopes)

	_, err = OAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials", "google-token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestHTTPClient_NoToken(t *testing.T) {
	_, err := HTTPClient(context.Background(), writeCredentials(t), filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestHTTPClient_WithToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(tokenPath, &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}))
	c, err := HTTPClient(context.Background(), writeCredentials(t), tokenPath)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestAuthorize_BadCode(t *testing.T) {
	cfg, err := OAuthConfig(writeCredentials(t))
	require.NoError(t, err)
	cfg.Endpoint.TokenURL = "http://127.0.0.1:1/token"

	var out strings.Builder
	err = Authorize(context.Background(), cfg, filepath.Join(t.TempDir(), "t.json"), strings.NewReader("code123\n"), &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "https://accounts.google.com/o/oauth2/auth?")
	assert.Contains(t, out.String(), "access_type=offline")
}
