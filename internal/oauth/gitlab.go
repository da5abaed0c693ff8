package oauth

import (
	"context"
	"strconv"

	"github.com/dimitrije/agency-api/internal/config"
	"golang.org/x/oauth2"
)

const gitlabBase = "https://gitlab.com"

type GitLabProvider struct {
	config  *oauth2.Config
	apiBase string
}

func NewGitLabProvider(cfg config.OAuthConfig) *GitLabProvider {
	return &GitLabProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read_user"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  gitlabBase + "/oauth/authorize",
				TokenURL: gitlabBase + "/oauth/token",
			},
		},
		apiBase: gitlabBase + "/api/v4",
	}
}

func (p *GitLabProvider) Name() string {
	return "gitlab"
}

func (p *GitLabProvider) GetConsentURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GitLabProvider) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	client, err := exchange(ctx, p.config, code)
	if err != nil {
		return nil, err
	}

	var glUser struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "gitlab", p.apiBase+"/user", &glUser); err != nil {
		return nil, err
	}

	return newUserInfo("gitlab", strconv.FormatInt(glUser.ID, 10), glUser.Email, glUser.Name, glUser.Username, glUser.AvatarURL)
}
