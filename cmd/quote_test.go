package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/quotes"
)

func quoteTestDeps(t *testing.T, archive *fakeArchive) *QuoteCommandDeps {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AIRCHECK_CONFIG_DIR", dir)
	sessionPath := filepath.Join(dir, "session.yaml")
	return &QuoteCommandDeps{
		LoadConfig:  func() (*config.CLIConfig, error) { return config.DefaultConfig(), nil },
		NewClient:   func(*config.CLIConfig) (ArchiveClient, error) { return archive, nil },
		SessionPath: func() (string, error) { return sessionPath, nil },
	}
}

func runQuote(t *testing.T, deps *QuoteCommandDeps, args ...string) error {
	t.Helper()
	cmd := NewQuoteCommand(deps)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func int64Ptr(v int64) *int64 { return &v }

// existingQuote is a complete server-side quote, as pull would receive it.
func existingQuote() quotes.Quote {
	return quotes.Quote{
		ID:           int64Ptr(7),
		EpisodeID:    42,
		Title:        "opener",
		SpeakerName:  "Host",
		OriginalText: "good morning listeners",
	}
}

func TestQuoteCommandsRequireSession(t *testing.T) {
	deps := quoteTestDeps(t, &fakeArchive{})

	err := runQuote(t, deps, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active session")
}

func TestQuotePullStartsSession(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode(), highlights: []quotes.Quote{existingQuote()}}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))

	col, err := loadSession(deps)
	require.NoError(t, err)
	assert.Equal(t, int64(42), col.EpisodeID())
	require.Len(t, col.Quotes(), 1)
	assert.Equal(t, "opener", col.Quotes()[0].Title)
	assert.Equal(t, quotes.StatusDefault, col.Status())
}

func TestQuoteEditingFlow(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode()}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "add"))
	require.NoError(t, runQuote(t, deps, "toggle", "0", "0"))
	require.NoError(t, runQuote(t, deps, "toggle", "0", "1"))
	require.NoError(t, runQuote(t, deps, "edit", "0", "--title=Opener", "--speaker=Host"))

	col, err := loadSession(deps)
	require.NoError(t, err)
	require.Len(t, col.Quotes(), 1)
	q := col.Quotes()[0]
	assert.Equal(t, "Opener", q.Title)
	assert.Equal(t, "Host", q.SpeakerName)
	assert.Equal(t, "good morning listeners traffic is heavy on the bridge", q.OriginalText)
	require.Len(t, q.Range, 2)
	assert.Equal(t, quotes.StatusUnsaved, col.Status())
}

func TestQuoteToggleRemovesSelectedSegment(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode()}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "add"))
	require.NoError(t, runQuote(t, deps, "toggle", "0", "0"))
	require.NoError(t, runQuote(t, deps, "toggle", "0", "0"))

	col, err := loadSession(deps)
	require.NoError(t, err)
	assert.Empty(t, col.Quotes()[0].Range)
	assert.Empty(t, col.Quotes()[0].OriginalText)
}

func TestQuoteToggleWithoutTarget(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode()}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))

	err := runQuote(t, deps, "toggle", "0", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sampling target")
}

func TestQuotePushSendsTombstones(t *testing.T) {
	archive := &fakeArchive{
		episode:    testEpisode(),
		highlights: []quotes.Quote{existingQuote()},
		saved:      []quotes.Quote{},
	}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "delete", "0"))
	require.NoError(t, runQuote(t, deps, "push"))

	assert.Equal(t, []int64{7}, archive.gotToDelete)
	assert.Empty(t, archive.gotSave)

	col, err := loadSession(deps)
	require.NoError(t, err)
	assert.Equal(t, quotes.StatusSaved, col.Status())
}

func TestQuotePushAssignsServerIDs(t *testing.T) {
	archive := &fakeArchive{
		episode: testEpisode(),
		saved: []quotes.Quote{{
			ID:           int64Ptr(9),
			EpisodeID:    42,
			Title:        "Opener",
			SpeakerName:  "Host",
			OriginalText: "good morning listeners",
		}},
	}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "add"))
	require.NoError(t, runQuote(t, deps, "toggle", "0", "0"))
	require.NoError(t, runQuote(t, deps, "edit", "0", "--title=Opener", "--speaker=Host"))
	require.NoError(t, runQuote(t, deps, "push"))

	col, err := loadSession(deps)
	require.NoError(t, err)
	require.Len(t, col.Quotes(), 1)
	require.NotNil(t, col.Quotes()[0].ID)
	assert.Equal(t, int64(9), *col.Quotes()[0].ID)
}

func TestQuotePushValidationFailure(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode()}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "add"))

	err := runQuote(t, deps, "push")
	require.Error(t, err)
	assert.Nil(t, archive.gotSave, "nothing may reach the archive when validation fails")
}

func TestQuotePushFailureKeepsEdits(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode()}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "add"))
	require.NoError(t, runQuote(t, deps, "toggle", "0", "0"))
	require.NoError(t, runQuote(t, deps, "edit", "0", "--title=Opener", "--speaker=Host"))

	archive.err = errors.New("archive unreachable")
	require.Error(t, runQuote(t, deps, "push"))
	archive.err = nil

	col, err := loadSession(deps)
	require.NoError(t, err)
	assert.Equal(t, quotes.StatusError, col.Status())
	assert.Equal(t, "Opener", col.Quotes()[0].Title, "local edits survive a failed push")
}

func TestQuoteDiscard(t *testing.T) {
	archive := &fakeArchive{episode: testEpisode()}
	deps := quoteTestDeps(t, archive)

	require.NoError(t, runQuote(t, deps, "pull", "42"))
	require.NoError(t, runQuote(t, deps, "discard"))

	_, err := loadSession(deps)
	require.Error(t, err)

	// Discarding again is not an error.
	require.NoError(t, runQuote(t, deps, "discard"))
}
