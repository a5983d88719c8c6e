package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"channel-insights/shared/config"
	"channel-insights/shared/monitoring"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes covers the Data API catalog lookups and monetary analytics.
var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/yt-analytics-monetary.readonly",
}

// ErrNoToken means no OAuth token has been stored or supplied yet.
var ErrNoToken = errors.New("no OAuth token available; run the authorize command or supply a refresh token")

// RefreshResult is the outcome of an explicit refresh request.
type RefreshResult struct {
	Success bool
	Message string
}

// CredentialProvider owns the OAuth token shared by the analytics and data
// clients. It implements oauth2.TokenSource and persists refreshed tokens when
// the source is file-based.
type CredentialProvider struct {
	source      config.CredentialSourceConfig
	oauthConfig *oauth2.Config
	logger      zerolog.Logger

	mu    sync.Mutex // Protects concurrent token refresh operations
	token *oauth2.Token
}

func NewCredentialProvider(src config.CredentialSourceConfig, logger zerolog.Logger) (*CredentialProvider, error) {
	p := &CredentialProvider{source: src, logger: logger}

	switch src.Mode {
	case config.CredentialSourceInline:
		secret, err := config.ParseInlineSecret(src.InlineSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to read inline credentials: %w", err)
		}
		p.oauthConfig = newOAuthConfig(secret.ClientID, secret.ClientSecret)
		if secret.RefreshToken != "" || secret.AccessToken != "" {
			p.token = &oauth2.Token{AccessToken: secret.AccessToken, RefreshToken: secret.RefreshToken}
		}
		logger.Info().Msg("Using inline credential source; refreshed tokens are kept in memory only")

	case config.CredentialSourceFile:
		p.oauthConfig = newOAuthConfig(src.ClientID, src.ClientSecret)
		tok, err := tokenFromFile(src.TokenFile)
		switch {
		case err == nil && (tok.RefreshToken != "" || tok.Valid()):
			// Even if the token appears expired, keep it if it has a refresh token.
			p.token = tok
			logger.Info().Time("expiry", tok.Expiry).Msg("Loaded token from file")
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read token file %s: %w", src.TokenFile, err)
		default:
			logger.Warn().Str("token_file", src.TokenFile).Msg("No usable token stored; run the authorize command")
		}

	default:
		return nil, fmt.Errorf("unknown credential source %q", src.Mode)
	}

	return p, nil
}

func newOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// AnalyticsCredential returns the token source for the analytics service.
func (p *CredentialProvider) AnalyticsCredential() oauth2.TokenSource { return p }

// DataCredential returns the token source for the catalog service.
func (p *CredentialProvider) DataCredential() oauth2.TokenSource { return p }

// Token implements oauth2.TokenSource. It returns the current token,
// refreshing it when needed and saving any refreshed token.
func (p *CredentialProvider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return nil, ErrNoToken
	}

	newToken, err := p.oauthConfig.TokenSource(context.Background(), p.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != p.token.AccessToken {
		p.logger.Info().Time("expiry", newToken.Expiry).Msg("Token refreshed")
		p.token = newToken
		p.persist(newToken)
	}
	return newToken, nil
}

// Refresh forces a token refresh. A non-empty explicitToken replaces the
// stored refresh token instead.
func (p *CredentialProvider) Refresh(ctx context.Context, explicitToken string) RefreshResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if explicitToken = strings.TrimSpace(explicitToken); explicitToken != "" {
		p.token = &oauth2.Token{RefreshToken: explicitToken}
		p.persist(p.token)
		msg := "Successfully updated refresh token."
		if p.source.Mode == config.CredentialSourceInline {
			msg += " Update CLIENT_SECRET as well, the new token is lost on restart."
		}
		monitoring.RecordTokenRefresh(true)
		return RefreshResult{Success: true, Message: msg}
	}

	if p.token == nil || p.token.RefreshToken == "" {
		monitoring.RecordTokenRefresh(false)
		return RefreshResult{Message: ErrNoToken.Error()}
	}

	// A token without an access token is always refreshed.
	forced := &oauth2.Token{RefreshToken: p.token.RefreshToken}
	newToken, err := p.oauthConfig.TokenSource(ctx, forced).Token()
	if err != nil {
		monitoring.RecordTokenRefresh(false)
		p.logger.Error().Err(err).Msg("Token refresh failed")

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return RefreshResult{Message: fmt.Sprintf("%d: failed to refresh token\n%s",
				retrieveErr.Response.StatusCode, strings.TrimSpace(string(retrieveErr.Body)))}
		}
		return RefreshResult{Message: fmt.Sprintf("failed to refresh token: %v", err)}
	}

	p.token = newToken
	p.persist(newToken)
	monitoring.RecordTokenRefresh(true)
	return RefreshResult{
		Success: true,
		Message: fmt.Sprintf("Successfully refreshed token (valid until %s)", newToken.Expiry.Format(time.RFC3339)),
	}
}

// persist writes the token for file-based sources. Callers hold p.mu.
func (p *CredentialProvider) persist(tok *oauth2.Token) {
	if p.source.Mode != config.CredentialSourceFile {
		return
	}
	if err := saveToken(p.source.TokenFile, tok); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to save refreshed token")
	}
}

// Authorize runs the device authorization flow and stores the resulting token.
// Only file-based sources can be authorized this way.
func (p *CredentialProvider) Authorize(ctx context.Context, out io.Writer) error {
	if p.source.Mode != config.CredentialSourceFile {
		return fmt.Errorf("authorization is only available for the %q credential source", config.CredentialSourceFile)
	}

	tok, err := getTokenWithDeviceFlow(ctx, p.oauthConfig, out)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			p.logger.Error().Str("status", retrieveErr.Response.Status).
				Str("body", strings.TrimSpace(string(retrieveErr.Body))).
				Msg("Device authorization response failed")
		}
		return fmt.Errorf("device authorization failed: %w. Ensure your OAuth client is created as 'TVs and Limited Input devices' and that the YouTube Analytics and Data APIs are enabled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = tok
	if err := saveToken(p.source.TokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to: %s\n", p.source.TokenFile)
	return nil
}

func getTokenWithDeviceFlow(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	resp, err := cfg.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(out, "YOUTUBE DEVICE AUTHORIZATION REQUIRED\n")
	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(out, "1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	fmt.Fprintf(out, "2. Enter this code when prompted: %s\n\n", resp.UserCode)
	if completeURL := strings.TrimSpace(resp.VerificationURIComplete); completeURL != "" {
		fmt.Fprintf(out, "   Or open directly: %s\n\n", completeURL)
	}
	fmt.Fprintf(out, "Waiting for authorization to complete... (Ctrl+C to cancel)\n")
	fmt.Fprintf(out, "%s\n", strings.Repeat("-", 80))

	tok, err := cfg.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}
