package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/quotes"
)

// QuoteCommandDeps holds the dependencies for quote commands.
type QuoteCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	NewClient   func(*config.CLIConfig) (ArchiveClient, error)
	SessionPath func() (string, error)
}

// DefaultQuoteDeps returns the default dependencies for production use.
func DefaultQuoteDeps() *QuoteCommandDeps {
	return &QuoteCommandDeps{
		LoadConfig:  config.LoadConfig,
		NewClient:   newArchiveClient,
		SessionPath: config.SessionPath,
	}
}

// Quote command flags.
var (
	quoteTitle     string
	quoteSpeaker   string
	quoteFixedText string
	quoteSampleOff bool
)

// withDefaults fills unset dependencies with the production defaults.
func (d *QuoteCommandDeps) withDefaults() *QuoteCommandDeps {
	if d == nil {
		return DefaultQuoteDeps()
	}
	def := DefaultQuoteDeps()
	if d.LoadConfig == nil {
		d.LoadConfig = def.LoadConfig
	}
	if d.NewClient == nil {
		d.NewClient = def.NewClient
	}
	if d.SessionPath == nil {
		d.SessionPath = def.SessionPath
	}
	return d
}

// NewQuoteCommand creates the quote command with its subcommands.
func NewQuoteCommand(deps *QuoteCommandDeps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Build and save quotes from an episode",
		Long: `Build quotes from an episode's transcript and save them to the archive.

Quotes are edited in a local working session stored under ~/.aircheck.
The session tracks every local change until it is pushed; a failed push
keeps your edits so you can retry.

Workflow:
  1. 'quote pull <episode-id>' starts a session from the episode's saved quotes
  2. 'quote add' creates an empty quote and makes it the sampling target
  3. 'quote toggle <part> <segment>' adds or removes transcript segments
  4. 'quote edit <index>' sets title, speaker, and corrected text
  5. 'quote push' saves everything back to the archive

Examples:
  aircheck quote pull 42
  aircheck quote add
  aircheck quote toggle 0 12
  aircheck quote toggle 0 13
  aircheck quote edit 0 --title="On the budget" --speaker="Mayor Ines"
  aircheck quote push`,
	}

	cmd.AddCommand(newQuotePullCommand(deps))
	cmd.AddCommand(newQuoteListCommand(deps))
	cmd.AddCommand(newQuoteAddCommand(deps))
	cmd.AddCommand(newQuoteEditCommand(deps))
	cmd.AddCommand(newQuoteDeleteCommand(deps))
	cmd.AddCommand(newQuoteSampleCommand(deps))
	cmd.AddCommand(newQuoteToggleCommand(deps))
	cmd.AddCommand(newQuotePushCommand(deps))
	cmd.AddCommand(newQuoteDiscardCommand(deps))

	return cmd
}

func newQuotePullCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <episode-id>",
		Short: "Start a quote session from an episode",
		Long: `Fetch an episode's saved quotes and start a local editing session.

An existing session for another episode is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid episode id: %s", args[0])
			}
			return runQuotePull(cmd.Context(), deps, id)
		},
	}
}

func newQuoteListCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the quotes in the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuoteList(deps)
		},
	}
}

func newQuoteAddCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add an empty quote and make it the sampling target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuoteAdd(deps)
		},
	}
}

func newQuoteEditCommand(deps *QuoteCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Edit a quote's title, speaker, or corrected text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseQuoteIndex(args[0])
			if err != nil {
				return err
			}
			return runQuoteEdit(deps, cmd, index)
		},
	}

	cmd.Flags().StringVar(&quoteTitle, "title", "", "Quote title")
	cmd.Flags().StringVar(&quoteSpeaker, "speaker", "", "Who said it")
	cmd.Flags().StringVar(&quoteFixedText, "fixed-text", "", "Corrected quote text (the recognized text is kept as-is)")

	return cmd
}

func newQuoteDeleteCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a quote from the session",
		Long: `Delete a quote from the session.

A quote the archive already knows about is removed remotely on the next
push; a quote that was never pushed just disappears.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseQuoteIndex(args[0])
			if err != nil {
				return err
			}
			return runQuoteDelete(deps, index)
		},
	}
}

func newQuoteSampleCommand(deps *QuoteCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample [<index>]",
		Short: "Choose which quote segment toggles apply to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if quoteSampleOff {
				return runQuoteSampleClear(deps)
			}
			if len(args) != 1 {
				return fmt.Errorf("an index is required unless --clear is given")
			}
			index, err := parseQuoteIndex(args[0])
			if err != nil {
				return err
			}
			return runQuoteSample(deps, index)
		},
	}

	cmd.Flags().BoolVar(&quoteSampleOff, "clear", false, "Stop sampling")

	return cmd
}

func newQuoteToggleCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <part> <segment>",
		Short: "Add or remove a transcript segment from the sampling target",
		Long: `Add a transcript segment to the sampling target, or remove it when it is
already selected. The quote's text is recomposed from its selected
segments in timeline order after every toggle.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			part, err := strconv.Atoi(args[0])
			if err != nil || part < 0 {
				return fmt.Errorf("invalid part: %s", args[0])
			}
			segment, err := strconv.Atoi(args[1])
			if err != nil || segment < 0 {
				return fmt.Errorf("invalid segment: %s", args[1])
			}
			return runQuoteToggle(cmd.Context(), deps, part, segment)
		},
	}
}

func newQuotePushCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Save the session's quotes to the archive",
		Long: `Save every quote in the session to the archive, along with any pending
deletions. All quotes must have a title, speaker, and text; nothing is
sent until the whole session validates. On failure your local edits are
kept and the push can be retried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuotePush(cmd.Context(), deps)
		},
	}
}

func newQuoteDiscardCommand(deps *QuoteCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Throw away the current session without pushing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuoteDiscard(deps)
		},
	}
}

func runQuotePull(ctx context.Context, deps *QuoteCommandDeps, episodeID int64) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	archive, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connecting to archive: %w", err)
	}

	ep, highlights, err := archive.GetEpisode(ctx, episodeID)
	if err != nil {
		return fmt.Errorf("fetching episode %d: %w", episodeID, err)
	}

	col := quotes.NewCollection(episodeID, highlights)
	if err := saveSession(deps, col); err != nil {
		return err
	}

	fmt.Printf("Session started for episode #%d (%s): %d existing quote(s).\n",
		episodeID, valueOrDefault(ep.Program, "untitled"), len(highlights))
	return nil
}

func runQuoteList(deps *QuoteCommandDeps) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	qs := col.Quotes()
	sampling, hasSampling := col.SamplingTarget()

	fmt.Printf("Episode #%d | %d quote(s) | status: %s\n", col.EpisodeID(), len(qs), col.Status())
	if pending := col.PendingDeletes(); len(pending) > 0 {
		fmt.Printf("Pending remote deletions: %d\n", len(pending))
	}
	fmt.Println()

	if len(qs) == 0 {
		fmt.Println("No quotes yet. Run 'aircheck quote add' to start one.")
		return nil
	}

	for i, q := range qs {
		marker := " "
		if hasSampling && i == sampling {
			marker = "*"
		}
		saved := "local"
		if q.ID != nil {
			saved = fmt.Sprintf("#%d", *q.ID)
		}
		fmt.Printf("%s [%d] %-7s %s\n", marker, i, saved, valueOrDefault(q.Title, "(untitled)"))
		if q.SpeakerName != "" {
			fmt.Printf("      speaker: %s\n", q.SpeakerName)
		}
		if text := displayText(q); text != "" {
			fmt.Printf("      %s\n", text)
		}
		if len(q.Range) > 0 {
			fmt.Printf("      %d segment(s) selected\n", len(q.Range))
		}
	}

	if hasSampling {
		fmt.Printf("\n* sampling target: toggles apply to quote %d\n", sampling)
	}
	return nil
}

func runQuoteAdd(deps *QuoteCommandDeps) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	index := col.Add()
	if err := saveSession(deps, col); err != nil {
		return err
	}

	fmt.Printf("Added quote %d; it is now the sampling target.\n", index)
	return nil
}

func runQuoteEdit(deps *QuoteCommandDeps, cmd *cobra.Command, index int) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	changed := false
	if cmd.Flags().Changed("title") {
		if err := col.EditTitle(index, quoteTitle); err != nil {
			return err
		}
		changed = true
	}
	if cmd.Flags().Changed("speaker") {
		if err := col.EditSpeaker(index, quoteSpeaker); err != nil {
			return err
		}
		changed = true
	}
	if cmd.Flags().Changed("fixed-text") {
		if err := col.EditFixedText(index, quoteFixedText); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return fmt.Errorf("nothing to change: pass --title, --speaker, or --fixed-text")
	}

	if err := saveSession(deps, col); err != nil {
		return err
	}

	fmt.Printf("Updated quote %d.\n", index)
	return nil
}

func runQuoteDelete(deps *QuoteCommandDeps, index int) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	if err := col.Delete(index); err != nil {
		return err
	}
	if err := saveSession(deps, col); err != nil {
		return err
	}

	fmt.Printf("Deleted quote %d.\n", index)
	return nil
}

func runQuoteSample(deps *QuoteCommandDeps, index int) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	if err := col.SetSamplingTarget(index); err != nil {
		return err
	}
	if err := saveSession(deps, col); err != nil {
		return err
	}

	fmt.Printf("Sampling into quote %d.\n", index)
	return nil
}

func runQuoteSampleClear(deps *QuoteCommandDeps) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	col.ClearSamplingTarget()
	if err := saveSession(deps, col); err != nil {
		return err
	}

	fmt.Println("Sampling stopped.")
	return nil
}

func runQuoteToggle(ctx context.Context, deps *QuoteCommandDeps, part, segment int) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	if _, ok := col.SamplingTarget(); !ok {
		return fmt.Errorf("no sampling target: run 'aircheck quote sample <index>' first")
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	archive, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connecting to archive: %w", err)
	}

	ep, _, err := archive.GetEpisode(ctx, col.EpisodeID())
	if err != nil {
		return fmt.Errorf("fetching episode %d: %w", col.EpisodeID(), err)
	}

	seg, ok := ep.SegmentWithContent(part, segment)
	if !ok {
		return fmt.Errorf("episode %d has no segment %d:%d", ep.ID, part, segment)
	}

	col.ToggleSegment(seg)
	if err := saveSession(deps, col); err != nil {
		return err
	}

	target, _ := col.SamplingTarget()
	fmt.Printf("Toggled %d:%d on quote %d.\n", part, segment, target)
	if q := col.Quotes()[target]; q.OriginalText != "" {
		fmt.Printf("  %s\n", q.OriginalText)
	}
	return nil
}

func runQuotePush(ctx context.Context, deps *QuoteCommandDeps) error {
	col, err := loadSession(deps)
	if err != nil {
		return err
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	archive, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connecting to archive: %w", err)
	}

	saveErr := col.Save(ctx, archive)

	// The session reflects the outcome either way: saved quotes carry their
	// server ids, a failed push keeps the local edits for retry.
	if err := saveSession(deps, col); err != nil {
		return err
	}
	if saveErr != nil {
		return fmt.Errorf("push failed: %w", saveErr)
	}

	fmt.Printf("Pushed %d quote(s) for episode #%d.\n", len(col.Quotes()), col.EpisodeID())
	return nil
}

func runQuoteDiscard(deps *QuoteCommandDeps) error {
	path, err := deps.SessionPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No active session.")
			return nil
		}
		return fmt.Errorf("removing session: %w", err)
	}

	fmt.Println("Session discarded.")
	return nil
}

// loadSession reads the working set from disk.
func loadSession(deps *QuoteCommandDeps) (*quotes.Collection, error) {
	path, err := deps.SessionPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("no active session: run 'aircheck quote pull <episode-id>' first")
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var state quotes.State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	return quotes.FromState(state), nil
}

// saveSession writes the working set to disk.
func saveSession(deps *QuoteCommandDeps, col *quotes.Collection) error {
	path, err := deps.SessionPath()
	if err != nil {
		return err
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(col.State())
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// displayText prefers the corrected text over the recognized text.
func displayText(q quotes.Quote) string {
	if q.FixedText != "" {
		return q.FixedText
	}
	return q.OriginalText
}

// parseQuoteIndex parses a zero-based quote index argument.
func parseQuoteIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid quote index: %s", s)
	}
	return index, nil
}
