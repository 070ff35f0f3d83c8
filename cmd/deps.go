// Package cmd provides CLI commands for the aircheck tool.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/aircheck-cli/client"
	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/credentials"
	"github.com/otherjamesbrown/aircheck-cli/pkg/logging"
	"github.com/otherjamesbrown/aircheck-cli/quotes"
	"github.com/otherjamesbrown/aircheck-cli/search"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// ArchiveClient is the subset of the archive API the commands use. The
// concrete implementation is client.Client; tests substitute fakes.
type ArchiveClient interface {
	GetEpisode(ctx context.Context, id int64) (*transcript.Episode, []quotes.Quote, error)
	ExecuteSearch(ctx context.Context, q search.Query) (*search.Result, error)
	SaveHighlights(ctx context.Context, episodeID int64, qs []quotes.Quote, toDelete []int64) ([]quotes.Quote, error)
}

// newArchiveClient builds the production archive client from configuration.
// The token source resolves lazily so commands that never authenticate do not
// touch the credential store.
func newArchiveClient(cfg *config.CLIConfig) (ArchiveClient, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = logging.LevelDebug
	}

	tokenSource := func() (string, error) {
		store, err := credentials.NewStore()
		if err != nil {
			return "", err
		}
		creds, err := store.GetActiveCredential()
		if errors.Is(err, credentials.ErrNoCredentials) {
			// Reads work anonymously; only saving highlights needs a token.
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return creds.Token, nil
	}

	return client.New(cfg.ServerURL,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logging.NewLogger(logCfg)),
		client.WithTokenSource(tokenSource),
	), nil
}

// resolveOutputFormat picks the per-command format override when set,
// otherwise the configured default.
func resolveOutputFormat(cfg *config.CLIConfig, override string) (config.OutputFormat, error) {
	if override == "" {
		return cfg.OutputFormat, nil
	}
	format := config.OutputFormat(override)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", override)
	}
	return format, nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML writes v to stdout as YAML.
func outputYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(v)
}
