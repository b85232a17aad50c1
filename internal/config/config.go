// Package config provides centralized configuration management for the application.
package config

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
)

// Providers lists the supported source-control hosting providers.
var Providers = []string{"github", "gitlab", "bitbucket"}

// Config holds the resolved credential and endpoint for one provider.
type Config struct {
	Provider string
	Token    string
	Endpoint string
}

// Load resolves the token and API endpoint for the named provider.
// Precedence for the token: explicit override (flag), environment variable,
// then "git config <provider>.token". A missing token is fatal except for
// Bitbucket, which permits anonymous access to public repositories.
func Load(provider, tokenOverride, endpointOverride string) (*Config, error) {
	if !knownProvider(provider) {
		return nil, fmt.Errorf("unknown provider: %q (expected github, gitlab or bitbucket)", provider)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.endpoint", "GITHUB_API_ENDPOINT")
	v.BindEnv("gitlab.token", "GITLAB_TOKEN")
	v.BindEnv("gitlab.endpoint", "GITLAB_API_ENDPOINT")
	v.BindEnv("bitbucket.token", "BITBUCKET_TOKEN")
	v.BindEnv("bitbucket.endpoint", "BITBUCKET_API_ENDPOINT")

	token := tokenOverride
	if token == "" {
		token = v.GetString(provider + ".token")
	}
	if token == "" {
		token = gitConfigToken(provider)
	}

	endpoint := endpointOverride
	if endpoint == "" {
		endpoint = v.GetString(provider + ".endpoint")
	}

	cfg := &Config{
		Provider: provider,
		Token:    token,
		Endpoint: endpoint,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	logging.Debug("provider configuration resolved",
		"provider", provider,
		"token", logging.MaskSensitive(token),
		"endpoint", endpoint)

	return cfg, nil
}

// validate ensures a credential is present where the provider requires one.
func validate(cfg *Config) error {
	if cfg.Token != "" {
		return nil
	}
	if cfg.Provider == "bitbucket" {
		logging.Warn("no bitbucket token configured; only public repositories are accessible")
		return nil
	}
	envVar := strings.ToUpper(cfg.Provider) + "_TOKEN"
	return fmt.Errorf("%s token not found: set %s, run 'git config %s.token <token>', or pass --token",
		cfg.Provider, envVar, cfg.Provider)
}

func knownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// gitConfigToken looks up "<provider>.token" in the local git configuration.
// Failures are treated as "no token configured".
func gitConfigToken(provider string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "config", provider+".token").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
