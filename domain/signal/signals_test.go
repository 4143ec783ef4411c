package signal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/signal"
)

func timestamp(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestParseGitHubRepo(t *testing.T) {
	tests := []struct {
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/acme/files-server", "acme", "files-server", true},
		{"https://github.com/acme/files-server.git", "acme", "files-server", true},
		{"git@github.com:acme/files-server.git", "acme", "files-server", true},
		{"https://github.com/acme/files-server/tree/main", "acme", "files-server", true},
		{"https://gitlab.com/acme/files-server", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, repo, ok := signal.ParseGitHubRepo(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}

func TestNormalizeRepoURL(t *testing.T) {
	assert.Equal(t, "github.com/acme/files", signal.NormalizeRepoURL("https://github.com/Acme/Files/"))
	assert.Equal(t, "github.com/acme/files", signal.NormalizeRepoURL("http://www.github.com/acme/files.git"))
	assert.Equal(t, "github.com/acme/files", signal.NormalizeRepoURL("github.com/acme/files"))
}

func TestAnalyzeServiceCost(t *testing.T) {
	cost, ok := signal.AnalyzeServiceCost("io.github.acme/llm", []string{
		"OPENAI_API_KEY",
		"MY_OPENAI_TOKEN",
		"SLACK_BOT_TOKEN",
	})
	require.True(t, ok)

	// Each service matches at most once despite two openai variables.
	assert.Equal(t, []string{"OpenAI", "Slack"}, cost.PaidServices())
	assert.True(t, cost.RequiresPaid())
	require.NotNil(t, cost.FreeTierAvailable())
	assert.False(t, *cost.FreeTierAvailable())
	assert.Empty(t, cost.Notes())
}

func TestAnalyzeServiceCostAllFreeTiers(t *testing.T) {
	cost, ok := signal.AnalyzeServiceCost("io.github.acme/chat", []string{"SLACK_TOKEN"})
	require.True(t, ok)
	assert.False(t, cost.RequiresPaid())
	require.NotNil(t, cost.FreeTierAvailable())
	assert.True(t, *cost.FreeTierAvailable())
}

func TestAnalyzeServiceCostUnmatchedSecrets(t *testing.T) {
	cost, ok := signal.AnalyzeServiceCost("io.github.acme/files", []string{"MY_CUSTOM_KEY"})
	require.True(t, ok)
	assert.Empty(t, cost.PaidServices())
	assert.Nil(t, cost.FreeTierAvailable())
	assert.Contains(t, cost.Notes(), "MY_CUSTOM_KEY")
}

func TestAnalyzeServiceCostNoSecrets(t *testing.T) {
	_, ok := signal.AnalyzeServiceCost("io.github.acme/files", nil)
	assert.False(t, ok)
}

func TestGitHubRepoOptions(t *testing.T) {
	pushed := timestamp(t, "2026-05-01T00:00:00Z")
	created := timestamp(t, "2024-01-01T00:00:00Z")
	repo := signal.NewGitHubRepoWithOptions("io.github.acme/files", "acme", "files",
		signal.WithCounts(1200, 80, 14, 50),
		signal.WithRepoDetails("TypeScript", "MIT", []string{"mcp", "files"}, "main"),
		signal.WithFlags(false, false),
		signal.WithTimestamps(&pushed, &created),
	)

	assert.Equal(t, "acme/files", repo.FullName())
	assert.Equal(t, 1200, repo.Stars())
	assert.Equal(t, "MIT", repo.License())
	assert.Equal(t, []string{"mcp", "files"}, repo.Topics())
	assert.False(t, repo.Archived())
	require.NotNil(t, repo.PushedAt())
	assert.Equal(t, pushed, *repo.PushedAt())
}
