package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokenFromEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")

	cfg, err := Load("github", "", "")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Token)
}

func TestLoadFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "env-token")

	cfg, err := Load("gitlab", "flag-token", "")
	require.NoError(t, err)
	assert.Equal(t, "flag-token", cfg.Token)
}

func TestLoadEndpointOverride(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("GITHUB_API_ENDPOINT", "https://github.example.com/api/v3/")

	cfg, err := Load("github", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://github.example.com/api/v3/", cfg.Endpoint)

	cfg, err = Load("github", "", "https://other.example.com/api/v3/")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/api/v3/", cfg.Endpoint)
}

func TestLoadMissingTokenIsFatal(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("HOME", t.TempDir()) // keep git config lookups from finding a real token

	_, err := Load("github", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestLoadBitbucketAllowsAnonymous(t *testing.T) {
	t.Setenv("BITBUCKET_TOKEN", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("bitbucket", "", "")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Token)
}

func TestLoadUnknownProvider(t *testing.T) {
	_, err := Load("sourceforge", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
