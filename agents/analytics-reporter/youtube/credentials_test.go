package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"channel-insights/shared/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fileSource(t *testing.T) config.CredentialSourceConfig {
	t.Helper()
	return config.CredentialSourceConfig{
		Mode:         config.CredentialSourceFile,
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		TokenFile:    filepath.Join(t.TempDir(), "token.json"),
	}
}

// tokenServer answers the OAuth token endpoint with the given status and body.
func tokenServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pointAt(p *CredentialProvider, srv *httptest.Server) {
	p.oauthConfig.Endpoint = oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}
}

func TestSaveToken(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("SaveWithNestedDirectory", func(t *testing.T) {
		tokenFile := filepath.Join(tempDir, "nested", "dir", "token.json")
		tok := &oauth2.Token{AccessToken: "nested-access", RefreshToken: "nested-refresh", Expiry: time.Now().Add(time.Hour)}

		require.NoError(t, saveToken(tokenFile, tok))

		saved, err := tokenFromFile(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, tok.AccessToken, saved.AccessToken)
		assert.Equal(t, tok.RefreshToken, saved.RefreshToken)

		info, err := os.Stat(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("OverwriteExistingFile", func(t *testing.T) {
		tokenFile := filepath.Join(tempDir, "overwrite.json")
		require.NoError(t, saveToken(tokenFile, &oauth2.Token{AccessToken: "first-token"}))
		require.NoError(t, saveToken(tokenFile, &oauth2.Token{AccessToken: "second"}))

		saved, err := tokenFromFile(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, "second", saved.AccessToken)
	})
}

func TestTokenFromFile(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("NonExistentFile", func(t *testing.T) {
		_, err := tokenFromFile(filepath.Join(tempDir, "missing.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		tokenFile := filepath.Join(tempDir, "bad.json")
		require.NoError(t, os.WriteFile(tokenFile, []byte("invalid json"), 0600))
		_, err := tokenFromFile(tokenFile)
		assert.Error(t, err)
	})
}

func TestNewCredentialProvider(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("FileWithoutToken", func(t *testing.T) {
		p, err := NewCredentialProvider(fileSource(t), logger)
		require.NoError(t, err)

		_, err = p.Token()
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("FileWithValidToken", func(t *testing.T) {
		src := fileSource(t)
		require.NoError(t, saveToken(src.TokenFile, &oauth2.Token{
			AccessToken:  "valid-access",
			RefreshToken: "valid-refresh",
			Expiry:       time.Now().Add(time.Hour),
		}))

		p, err := NewCredentialProvider(src, logger)
		require.NoError(t, err)

		tok, err := p.Token()
		require.NoError(t, err)
		assert.Equal(t, "valid-access", tok.AccessToken)
	})

	t.Run("FileWithCorruptToken", func(t *testing.T) {
		src := fileSource(t)
		require.NoError(t, os.WriteFile(src.TokenFile, []byte("{"), 0600))

		_, err := NewCredentialProvider(src, logger)
		assert.Error(t, err)
	})

	t.Run("InlineInstalledWrapper", func(t *testing.T) {
		raw := `{"installed":{"client_id":"id","client_secret":"secret","refresh_token":"rt"}}`
		p, err := NewCredentialProvider(config.CredentialSourceConfig{
			Mode:         config.CredentialSourceInline,
			InlineSecret: raw,
		}, logger)
		require.NoError(t, err)
		require.NotNil(t, p.token)
		assert.Equal(t, "rt", p.token.RefreshToken)
		assert.Equal(t, "id", p.oauthConfig.ClientID)
	})

	t.Run("InlineMalformed", func(t *testing.T) {
		_, err := NewCredentialProvider(config.CredentialSourceConfig{
			Mode:         config.CredentialSourceInline,
			InlineSecret: "not json",
		}, logger)
		assert.Error(t, err)
	})

	t.Run("UnknownMode", func(t *testing.T) {
		_, err := NewCredentialProvider(config.CredentialSourceConfig{Mode: "vault"}, logger)
		assert.Error(t, err)
	})
}

func TestRefresh(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("ExplicitTokenIsStored", func(t *testing.T) {
		src := fileSource(t)
		p, err := NewCredentialProvider(src, logger)
		require.NoError(t, err)

		res := p.Refresh(ctx, "  new-refresh-token ")
		assert.True(t, res.Success)
		assert.Contains(t, res.Message, "updated refresh token")

		saved, err := tokenFromFile(src.TokenFile)
		require.NoError(t, err)
		assert.Equal(t, "new-refresh-token", saved.RefreshToken)
	})

	t.Run("ExplicitTokenInlineWarns", func(t *testing.T) {
		p, err := NewCredentialProvider(config.CredentialSourceConfig{
			Mode:         config.CredentialSourceInline,
			InlineSecret: `{"client_id":"id","client_secret":"secret"}`,
		}, logger)
		require.NoError(t, err)

		res := p.Refresh(ctx, "rt")
		assert.True(t, res.Success)
		assert.Contains(t, res.Message, "CLIENT_SECRET")
	})

	t.Run("NoToken", func(t *testing.T) {
		p, err := NewCredentialProvider(fileSource(t), logger)
		require.NoError(t, err)

		res := p.Refresh(ctx, "")
		assert.False(t, res.Success)
		assert.Equal(t, ErrNoToken.Error(), res.Message)
	})

	t.Run("ForcedRefreshPersists", func(t *testing.T) {
		src := fileSource(t)
		require.NoError(t, saveToken(src.TokenFile, &oauth2.Token{
			AccessToken:  "still-valid",
			RefreshToken: "rt",
			Expiry:       time.Now().Add(time.Hour),
		}))
		p, err := NewCredentialProvider(src, logger)
		require.NoError(t, err)
		pointAt(p, tokenServer(t, http.StatusOK,
			`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))

		res := p.Refresh(ctx, "")
		require.True(t, res.Success, res.Message)
		assert.Contains(t, res.Message, "Successfully refreshed token")

		saved, err := tokenFromFile(src.TokenFile)
		require.NoError(t, err)
		assert.Equal(t, "fresh", saved.AccessToken)
		// The endpoint did not rotate the refresh token, so the old one is kept.
		assert.Equal(t, "rt", saved.RefreshToken)
	})

	t.Run("RejectedRefreshReportsStatus", func(t *testing.T) {
		src := fileSource(t)
		require.NoError(t, saveToken(src.TokenFile, &oauth2.Token{RefreshToken: "revoked"}))
		p, err := NewCredentialProvider(src, logger)
		require.NoError(t, err)
		pointAt(p, tokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`))

		res := p.Refresh(ctx, "")
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "400: failed to refresh token")
		assert.Contains(t, res.Message, "invalid_grant")
	})
}

func TestTokenPersistsRefreshedToken(t *testing.T) {
	src := fileSource(t)
	require.NoError(t, saveToken(src.TokenFile, &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(-time.Hour),
	}))
	p, err := NewCredentialProvider(src, zerolog.Nop())
	require.NoError(t, err)
	pointAt(p, tokenServer(t, http.StatusOK,
		`{"access_token":"renewed","token_type":"Bearer","expires_in":3600}`))

	tok, err := p.Token()
	require.NoError(t, err)
	assert.Equal(t, "renewed", tok.AccessToken)

	data, err := os.ReadFile(src.TokenFile)
	require.NoError(t, err)
	var saved oauth2.Token
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "renewed", saved.AccessToken)
}

func TestTokenConcurrency(t *testing.T) {
	src := fileSource(t)
	require.NoError(t, saveToken(src.TokenFile, &oauth2.Token{
		AccessToken:  "initial",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))
	p, err := NewCredentialProvider(src, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Token()
		}()
	}
	wg.Wait()
}

func TestAuthorizeRequiresFileSource(t *testing.T) {
	p, err := NewCredentialProvider(config.CredentialSourceConfig{
		Mode:         config.CredentialSourceInline,
		InlineSecret: `{"client_id":"id","client_secret":"secret"}`,
	}, zerolog.Nop())
	require.NoError(t, err)

	err = p.Authorize(context.Background(), os.Stdout)
	assert.Error(t, err)
}
