package config

import (
	"encoding/json"
	"os"

	"github.com/xchange-erasmus/xchange-api/internal/flagx"
	"github.com/xchange-erasmus/xchange-api/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Interval
// fields use timex.Duration so they can be written as "15m" or as integer
// nanoseconds. Only the keys present in the file override the current
// Config.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	LogLevel                    string         `json:"log_level"`
	GitHubClientID              string         `json:"github_client_id"`
	GitHubClientSecret          string         `json:"github_client_secret"`
	GitHubRedirectURI           string         `json:"github_redirect_uri"`
	GitHubScopes                []string       `json:"github_scopes"`
	GitHubAuthURL               string         `json:"github_auth_url"`
	GitHubTokenURL              string         `json:"github_token_url"`
	GitHubAPIURL                string         `json:"github_api_url"`
	ProviderTimeout             timex.Duration `json:"provider_timeout"`
	OAuthSuccessURL             string         `json:"oauth_success_url"`
	OAuthErrorURL               string         `json:"oauth_error_url"`
	DefaultRoleName             string         `json:"default_role"`
	CookieSecure                *bool          `json:"cookie_secure"`
}

// parseJson overlays config with the file named by -c/-config.
// Without the flag nothing is loaded. Read or decode errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.applyTo(config)
}

func (c *JsonConfig) applyTo(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.GitHubClientID, c.GitHubClientID)
	setString(&config.GitHubClientSecret, c.GitHubClientSecret)
	setString(&config.GitHubRedirectURI, c.GitHubRedirectURI)
	setString(&config.GitHubAuthURL, c.GitHubAuthURL)
	setString(&config.GitHubTokenURL, c.GitHubTokenURL)
	setString(&config.GitHubAPIURL, c.GitHubAPIURL)
	setString(&config.OAuthSuccessURL, c.OAuthSuccessURL)
	setString(&config.OAuthErrorURL, c.OAuthErrorURL)
	setString(&config.DefaultRoleName, c.DefaultRoleName)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ProviderTimeout.Duration != 0 {
		config.ProviderTimeout = c.ProviderTimeout.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if len(c.GitHubScopes) > 0 {
		config.GitHubScopes = c.GitHubScopes
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
