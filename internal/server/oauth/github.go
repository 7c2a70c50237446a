// Package oauth talks to the external identity provider used for social
// login: it builds the authorization URL, exchanges the callback code for a
// provider access token and fetches the user's profile.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/xchange-erasmus/xchange-api/internal/common"
)

// Profile is the subset of the GitHub user document the API needs.
type Profile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ResolvedEmail is the public email, or a synthetic login@github.com address
// when the user keeps their email private.
func (p *Profile) ResolvedEmail() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Login + "@github.com"
}

// DisplayName is the profile name, or the login when no name is set.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Login
}

// GitHubConfig carries the OAuth application settings.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration
}

// GitHubProvider implements the authorization code flow against GitHub.
type GitHubProvider struct {
	oauth2Config *oauth2.Config
	apiURL       string
	httpClient   *http.Client
}

// NewGitHubProvider builds a provider. Every outbound request is bounded by
// cfg.Timeout.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	return &GitHubProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a client id is set.
func (p *GitHubProvider) Configured() bool {
	return p.oauth2Config.ClientID != ""
}

// AuthCodeURL is the provider consent page for the given state.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a provider access token.
// Failures come back as *common.ProviderError.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", common.NewProviderError(re.ErrorCode, re.ErrorDescription, err)
		}
		if strings.Contains(err.Error(), "missing access_token") {
			return "", common.NewProviderError("", "the identity provider returned no access token", err)
		}
		return "", common.NewProviderError("", "", err)
	}

	if token.AccessToken == "" {
		return "", common.NewProviderError("", "the identity provider returned no access token", nil)
	}

	return token.AccessToken, nil
}

// FetchProfile reads the authenticated user's profile.
func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, common.NewProviderError("", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, common.NewProviderError("", "", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, common.NewProviderError(fmt.Sprintf("http_%d", resp.StatusCode), apiErr.Message, nil)
	}

	profile := &Profile{}
	if err := json.Unmarshal(body, profile); err != nil {
		return nil, common.NewProviderError("", "malformed profile response", err)
	}
	if profile.ID == 0 {
		return nil, common.NewProviderError("", "profile response has no user id", nil)
	}

	return profile, nil
}
