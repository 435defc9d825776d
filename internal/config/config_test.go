package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(openAIAPIKeyEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0 6 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Len(t, cfg.Sites, 4)
	assert.False(t, cfg.OpenAI.Enabled())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
scheduler:
  cronExpression: "*/30 * * * *"
  timezone: Europe/Berlin
fetch:
  timeout: 5s
  workers: 8
  respectRobots: true
digest:
  categories: [ai]
  perCategoryLimit: 7
sites:
  - name: hn
    kind: hackernews
  - name: go-blog
    kind: feed
    categories:
      - name: default
        url: https://go.dev/blog/feed.atom
    options:
      content_selector: div.Article p
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(openAIAPIKeyEnv, "sk-test")
	t.Setenv(openAIModelEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(emailRecipientsEnv, "a@example.com, b@example.com,")
	t.Setenv(databaseDSNEnv, "postgres://digest@localhost/digest")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Fetch.CallTimeout)
	assert.True(t, cfg.Fetch.RespectRobots)
	assert.Equal(t, []string{"ai"}, cfg.Digest.Categories)
	assert.Equal(t, 7, cfg.Digest.PerCategoryLimit)
	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "div.Article p", cfg.Sites[1].Options["content_selector"])

	assert.True(t, cfg.OpenAI.Enabled())
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.Recipients)
	assert.Equal(t, "postgres://digest@localhost/digest", cfg.Database.DSN)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadUnknownTimezone(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := map[string][]SiteConfig{
		"unnamed":                 {{Kind: KindCNN}},
		"duplicate":               {{Name: "x", Kind: KindCNN}, {Name: "x", Kind: KindArxiv}},
		"unknown kind":            {{Name: "x", Kind: "gopher"}},
		"feed without categories": {{Name: "x", Kind: KindFeed}},
	}
	for name, sites := range cases {
		cfg := defaultConfig()
		cfg.Sites = sites

		var cfgErr *domain.ConfigurationError
		assert.True(t, errors.As(cfg.Validate(), &cfgErr), name)
	}

	assert.NoError(t, defaultConfig().Validate())
}
