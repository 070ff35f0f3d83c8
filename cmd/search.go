package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/history"
	"github.com/otherjamesbrown/aircheck-cli/search"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// maxMatchesPerEpisode caps the matched-segment preview under each hit.
const maxMatchesPerEpisode = 3

// EpisodeSummary is one search hit in command output.
type EpisodeSummary struct {
	ID       int64         `json:"id" yaml:"id"`
	Program  string        `json:"program" yaml:"program"`
	AirDate  string        `json:"air_date" yaml:"air_date"`
	Parts    int           `json:"parts" yaml:"parts"`
	Segments int           `json:"segments" yaml:"segments"`
	PageURL  string        `json:"page_url,omitempty" yaml:"page_url,omitempty"`
	Matches  []SegmentView `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// SearchOutput is the full search response in command output.
type SearchOutput struct {
	Query      string           `json:"query" yaml:"query"`
	Mode       string           `json:"mode" yaml:"mode"`
	Page       int              `json:"page" yaml:"page"`
	PageSize   int              `json:"page_size" yaml:"page_size"`
	PageCount  int              `json:"page_count" yaml:"page_count"`
	Results    []EpisodeSummary `json:"results" yaml:"results"`
	SearchedAt time.Time        `json:"searched_at" yaml:"searched_at"`
}

// SearchCommandDeps holds the dependencies for search commands.
type SearchCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	NewClient   func(*config.CLIConfig) (ArchiveClient, error)
	OpenHistory func() (*history.Store, error)
}

// DefaultSearchDeps returns the default dependencies for production use.
func DefaultSearchDeps() *SearchCommandDeps {
	return &SearchCommandDeps{
		LoadConfig: config.LoadConfig,
		NewClient:  newArchiveClient,
		OpenHistory: func() (*history.Store, error) {
			path, err := config.HistoryPath()
			if err != nil {
				return nil, err
			}
			if err := config.EnsureConfigDir(); err != nil {
				return nil, err
			}
			return history.Open(path)
		},
	}
}

// Search command flags.
var (
	searchMode     string
	searchPage     int
	searchPageSize int
	searchOutput   string
)

// History command flags.
var (
	historyLimit int
	historyClear bool
)

// withDefaults fills unset dependencies with the production defaults.
func (d *SearchCommandDeps) withDefaults() *SearchCommandDeps {
	if d == nil {
		return DefaultSearchDeps()
	}
	def := DefaultSearchDeps()
	if d.LoadConfig == nil {
		d.LoadConfig = def.LoadConfig
	}
	if d.NewClient == nil {
		d.NewClient = def.NewClient
	}
	if d.OpenHistory == nil {
		d.OpenHistory = def.OpenHistory
	}
	return d
}

// NewSearchCommand creates the search command with its subcommands.
func NewSearchCommand(deps *SearchCommandDeps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search transcripts in the broadcast archive",
		Long: `Search the archived broadcast transcripts.

Three query modes are supported:
  - contains: plain substring matching (default)
  - regex:    regular expression matching
  - boolean:  AND/OR/NOT combinations of terms

Results are paginated; pages are zero-based.

Subcommands:
  history    View and manage recent searches

Examples:
  # Plain substring search
  aircheck search "traffic report"

  # Regular expression search
  aircheck search --mode=regex "storm (warning|watch)"

  # Boolean search
  aircheck search --mode=boolean "mayor AND budget NOT election"

  # Second page, larger pages
  aircheck search "interview" --page=1 --page-size=50

  # Machine-readable output
  aircheck search "headline" -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), deps, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&searchMode, "mode", "m", "", "Query mode: contains, regex, boolean (defaults to configured search_mode)")
	cmd.Flags().IntVarP(&searchPage, "page", "p", 0, "Zero-based result page")
	cmd.Flags().IntVar(&searchPageSize, "page-size", 0, "Results per page (defaults to configured page_size)")
	cmd.Flags().StringVarP(&searchOutput, "output", "o", "", "Output format: text, json, yaml")

	cmd.AddCommand(newSearchHistoryCommand(deps))

	return cmd
}

// runSearch executes one search against the archive.
func runSearch(ctx context.Context, deps *SearchCommandDeps, queryStr string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	outputFormat, err := resolveOutputFormat(cfg, searchOutput)
	if err != nil {
		return err
	}

	modeStr := searchMode
	if modeStr == "" {
		modeStr = cfg.SearchMode
	}
	mode, err := search.ParseMode(modeStr)
	if err != nil {
		return fmt.Errorf("invalid search mode: %s (must be contains, regex, or boolean)", modeStr)
	}

	if searchPage < 0 {
		return fmt.Errorf("page must not be negative")
	}
	pageSize := searchPageSize
	if pageSize <= 0 {
		pageSize = cfg.PageSize
	}

	archive, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connecting to archive: %w", err)
	}

	coord := search.NewCoordinator(archive, search.WithMode(mode), search.WithPageSize(pageSize))
	if err := coord.ApplyNavState(ctx, search.NavState{S: queryStr, P: searchPage, PS: pageSize}); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	episodes, pageCount, _ := coord.Results()

	recordSearch(ctx, deps, coord.Committed(), string(mode))

	response := SearchOutput{
		Query:      coord.Committed(),
		Mode:       string(mode),
		Page:       coord.Page(),
		PageSize:   coord.PageSize(),
		PageCount:  pageCount,
		Results:    summarizeEpisodes(episodes, matchTerm(mode, coord.Committed())),
		SearchedAt: time.Now(),
	}

	return outputSearchResults(outputFormat, response)
}

// recordSearch appends the query to local history. History failures never
// fail the search itself.
func recordSearch(ctx context.Context, deps *SearchCommandDeps, query, mode string) {
	store, err := deps.OpenHistory()
	if err != nil {
		return
	}
	defer store.Close()
	_ = store.Record(ctx, query, mode)
}

// matchTerm returns the text to preview matches for. Regex and boolean
// queries are interpreted server-side, so only contains queries preview.
func matchTerm(mode search.Mode, committed string) string {
	if mode != search.ModeContains {
		return ""
	}
	return committed
}

// summarizeEpisodes flattens episodes into display rows. When term is
// non-empty, each row carries a preview of the segments containing it.
func summarizeEpisodes(episodes []transcript.Episode, term string) []EpisodeSummary {
	lowered := strings.ToLower(term)

	summaries := make([]EpisodeSummary, len(episodes))
	for i, ep := range episodes {
		segments := 0
		var matches []SegmentView
		for p, part := range ep.Parts {
			segments += len(part)
			if lowered == "" {
				continue
			}
			for s, u := range part {
				text := u.Text()
				if !strings.Contains(strings.ToLower(text), lowered) || len(matches) >= maxMatchesPerEpisode {
					continue
				}
				clock, err := transcript.ToPlayableOffset(u.Offset, p)
				if err != nil {
					continue
				}
				matches = append(matches, SegmentView{Part: p, Segment: s, Clock: clock, Text: text})
			}
		}
		summaries[i] = EpisodeSummary{
			ID:       ep.ID,
			Program:  ep.Program,
			AirDate:  ep.AirDate,
			Parts:    len(ep.Parts),
			Segments: segments,
			PageURL:  ep.PageURL,
			Matches:  matches,
		}
	}
	return summaries
}

// outputSearchResults formats and outputs search results.
func outputSearchResults(format config.OutputFormat, response SearchOutput) error {
	switch format {
	case config.OutputFormatJSON:
		return outputJSON(response)
	case config.OutputFormatYAML:
		return outputYAML(response)
	default:
		return outputSearchResultsText(response)
	}
}

// outputSearchResultsText formats search results for terminal display.
func outputSearchResultsText(response SearchOutput) error {
	fmt.Printf("Search: %s (%s)\n", response.Query, response.Mode)
	fmt.Printf("Page %d of %d | %d result(s)\n\n", response.Page+1, max(response.PageCount, 1), len(response.Results))

	if len(response.Results) == 0 {
		fmt.Println("No matching episodes.")
		return nil
	}

	for _, r := range response.Results {
		fmt.Printf("  #%-6d %s", r.ID, valueOrDefault(r.Program, "(untitled)"))
		if r.AirDate != "" {
			fmt.Printf("  [%s]", r.AirDate)
		}
		fmt.Printf("  %d part(s), %d segment(s)\n", r.Parts, r.Segments)
		for _, m := range r.Matches {
			fmt.Printf("          [%d:%d] %s  %s\n", m.Part, m.Segment, m.Clock, m.Text)
		}
	}

	fmt.Printf("\nUse 'aircheck episode <id>' to read a transcript.\n")
	return nil
}

// newSearchHistoryCommand creates the 'search history' subcommand.
func newSearchHistoryCommand(deps *SearchCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View and manage search history",
		Long: `View recent searches, newest first.

Examples:
  # Show the last 20 searches
  aircheck search history

  # Show more
  aircheck search history --limit=100

  # Forget everything
  aircheck search history --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchHistory(cmd.Context(), deps)
		},
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all history entries")

	return cmd
}

// runSearchHistory lists or clears the local search history.
func runSearchHistory(ctx context.Context, deps *SearchCommandDeps) error {
	store, err := deps.OpenHistory()
	if err != nil {
		return fmt.Errorf("opening search history: %w", err)
	}
	defer store.Close()

	if historyClear {
		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing search history: %w", err)
		}
		fmt.Println("Search history cleared.")
		return nil
	}

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("reading search history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No search history.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("  %s  %-8s  %s\n", e.SearchedAt.Format("2006-01-02 15:04"), e.Mode, e.Query)
	}
	return nil
}
