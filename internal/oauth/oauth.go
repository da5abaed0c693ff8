package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dimitrije/agency-api/internal/config"
	"golang.org/x/oauth2"
)

// ErrNoEmail is returned when a provider account exposes no usable address.
// Invitations are matched by email, so such accounts cannot sign in.
var ErrNoEmail = errors.New("provider account has no email")

type UserInfo struct {
	Email     string
	Name      string
	AvatarURL string
	ID        string
	Provider  string
}

type Provider interface {
	GetConsentURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*UserInfo, error)
	Name() string
}

// NewProviders returns the providers that have a client id configured,
// keyed by the name used in /auth/:provider routes.
func NewProviders(cfg *config.Config) map[string]Provider {
	providers := make(map[string]Provider)
	if cfg.GitHub.ClientID != "" {
		providers["github"] = NewGitHubProvider(cfg.GitHub)
	}
	if cfg.GitLab.ClientID != "" {
		providers["gitlab"] = NewGitLabProvider(cfg.GitLab)
	}
	if cfg.Google.ClientID != "" {
		providers["google"] = NewGoogleProvider(cfg.Google)
	}
	return providers
}

func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// exchange trades code for a token and returns a client authorised with it.
func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*http.Client, error) {
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return cfg.Client(ctx, token), nil
}

func getJSON(ctx context.Context, client *http.Client, provider, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s api returned status %d", provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", provider, err)
	}
	return nil
}

func newUserInfo(provider, id, email, name, fallbackName, avatar string) (*UserInfo, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNoEmail
	}
	if name == "" {
		name = fallbackName
	}
	return &UserInfo{
		Email:     email,
		Name:      name,
		AvatarURL: avatar,
		ID:        id,
		Provider:  provider,
	}, nil
}
