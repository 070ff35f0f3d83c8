package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// SegmentView is one transcript line in command output. Clock is the
// utterance's wall-clock position in the full episode recording.
type SegmentView struct {
	Part    int    `json:"part" yaml:"part"`
	Segment int    `json:"segment" yaml:"segment"`
	Clock   string `json:"clock" yaml:"clock"`
	Text    string `json:"text" yaml:"text"`
}

// EpisodeOutput is the episode response in command output.
type EpisodeOutput struct {
	ID       int64         `json:"id" yaml:"id"`
	Program  string        `json:"program" yaml:"program"`
	AirDate  string        `json:"air_date" yaml:"air_date"`
	PageURL  string        `json:"page_url,omitempty" yaml:"page_url,omitempty"`
	PlayURL  string        `json:"play_url,omitempty" yaml:"play_url,omitempty"`
	Segments []SegmentView `json:"segments" yaml:"segments"`
}

// EpisodeCommandDeps holds the dependencies for the episode command.
type EpisodeCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	NewClient  func(*config.CLIConfig) (ArchiveClient, error)
}

// DefaultEpisodeDeps returns the default dependencies for production use.
func DefaultEpisodeDeps() *EpisodeCommandDeps {
	return &EpisodeCommandDeps{
		LoadConfig: config.LoadConfig,
		NewClient:  newArchiveClient,
	}
}

// Episode command flags.
var (
	episodeTerm     string
	episodePart     int
	episodeSegment  int
	episodeCollapse int
	episodePlayURL  bool
	episodeShare    bool
	episodeOutput   string
)

// withDefaults fills unset dependencies with the production defaults.
func (d *EpisodeCommandDeps) withDefaults() *EpisodeCommandDeps {
	if d == nil {
		return DefaultEpisodeDeps()
	}
	def := DefaultEpisodeDeps()
	if d.LoadConfig == nil {
		d.LoadConfig = def.LoadConfig
	}
	if d.NewClient == nil {
		d.NewClient = def.NewClient
	}
	return d
}

// NewEpisodeCommand creates the episode command.
func NewEpisodeCommand(deps *EpisodeCommandDeps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "episode <id>",
		Short: "Read an archived episode transcript",
		Long: `Fetch an episode from the archive and print its transcript.

Each line carries the segment's address (part:segment) and its wall-clock
position in the full recording, so a printed time can be matched against
the broadcast schedule or jumped to in a player.

Examples:
  # Full transcript
  aircheck episode 42

  # Only segments mentioning a term
  aircheck episode 42 --term="traffic"

  # One part only
  aircheck episode 42 --part=1

  # A single segment, with its playback link
  aircheck episode 42 --part=1 --segment=3 --play-url

  # A share link for a segment
  aircheck episode 42 --part=1 --segment=3 --share

  # Machine-readable transcript
  aircheck episode 42 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid episode id: %s", args[0])
			}
			return runEpisode(cmd.Context(), deps, id)
		},
	}

	cmd.Flags().StringVarP(&episodeTerm, "term", "t", "", "Only show segments containing this text (case-insensitive)")
	cmd.Flags().IntVar(&episodePart, "part", -1, "Only show this part")
	cmd.Flags().IntVar(&episodeSegment, "segment", -1, "Only show this segment (requires --part)")
	cmd.Flags().IntVar(&episodeCollapse, "collapse", 0, "Show at most this many segments per part (0 = all)")
	cmd.Flags().BoolVar(&episodePlayURL, "play-url", false, "Print the playback URL for the selected segment")
	cmd.Flags().BoolVar(&episodeShare, "share", false, "Print a share link for the selected segment")
	cmd.Flags().StringVarP(&episodeOutput, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

// runEpisode fetches and renders one episode.
func runEpisode(ctx context.Context, deps *EpisodeCommandDeps, id int64) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	outputFormat, err := resolveOutputFormat(cfg, episodeOutput)
	if err != nil {
		return err
	}

	if episodeSegment >= 0 && episodePart < 0 {
		return fmt.Errorf("--segment requires --part")
	}

	archive, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("connecting to archive: %w", err)
	}

	ep, _, err := archive.GetEpisode(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching episode %d: %w", id, err)
	}

	if episodePlayURL || episodeShare {
		return printSegmentLinks(cfg, ep)
	}

	view, err := buildEpisodeView(ep, episodeTerm, episodePart, episodeSegment)
	if err != nil {
		return err
	}
	if episodeCollapse > 0 {
		view.Segments = collapseSegments(view.Segments, episodeCollapse)
	}

	switch outputFormat {
	case config.OutputFormatJSON:
		return outputJSON(view)
	case config.OutputFormatYAML:
		return outputYAML(view)
	default:
		return outputEpisodeText(view)
	}
}

// buildEpisodeView flattens the episode's parts into display rows, applying
// the part, segment, and term filters.
func buildEpisodeView(ep *transcript.Episode, term string, part, segment int) (*EpisodeOutput, error) {
	view := &EpisodeOutput{
		ID:      ep.ID,
		Program: ep.Program,
		AirDate: ep.AirDate,
		PageURL: ep.PageURL,
	}

	lowered := strings.ToLower(term)

	for p, utterances := range ep.Parts {
		if part >= 0 && p != part {
			continue
		}
		for s, u := range utterances {
			if segment >= 0 && s != segment {
				continue
			}
			text := u.Text()
			if lowered != "" && !strings.Contains(strings.ToLower(text), lowered) {
				continue
			}
			clock, err := transcript.ToPlayableOffset(u.Offset, p)
			if err != nil {
				return nil, fmt.Errorf("segment %d:%d has malformed offset %q: %w", p, s, u.Offset, err)
			}
			view.Segments = append(view.Segments, SegmentView{
				Part:    p,
				Segment: s,
				Clock:   clock,
				Text:    text,
			})
		}
	}

	if part >= 0 && part >= len(ep.Parts) {
		return nil, fmt.Errorf("episode %d has no part %d", ep.ID, part)
	}
	if segment >= 0 && len(view.Segments) == 0 && lowered == "" {
		return nil, fmt.Errorf("episode %d has no segment %d:%d", ep.ID, part, segment)
	}

	return view, nil
}

// collapseSegments keeps at most limit segments per part.
func collapseSegments(segments []SegmentView, limit int) []SegmentView {
	kept := segments[:0:0]
	perPart := map[int]int{}
	for _, s := range segments {
		if perPart[s.Part] >= limit {
			continue
		}
		perPart[s.Part]++
		kept = append(kept, s)
	}
	return kept
}

// printSegmentLinks prints the playback and share links for the segment
// selected with --part/--segment.
func printSegmentLinks(cfg *config.CLIConfig, ep *transcript.Episode) error {
	if episodePart < 0 || episodeSegment < 0 {
		return fmt.Errorf("--play-url and --share require --part and --segment")
	}

	u, ok := ep.Segment(episodePart, episodeSegment)
	if !ok {
		return fmt.Errorf("episode %d has no segment %d:%d", ep.ID, episodePart, episodeSegment)
	}

	if episodePlayURL {
		offset, err := transcript.ToPlayableOffset(u.Offset, episodePart)
		if err != nil {
			return fmt.Errorf("segment has malformed offset %q: %w", u.Offset, err)
		}
		fmt.Println(transcript.PlaybackURL(ep.RemoteURL, offset))
	}

	if episodeShare {
		fmt.Println(shareLink(cfg.ServerURL, ep.ID, episodePart, episodeSegment, episodeTerm))
	}

	return nil
}

// shareLink builds a web link to the episode page positioned at a segment.
func shareLink(serverURL string, episodeID int64, part, segment int, term string) string {
	query := url.Values{}
	query.Set("part", strconv.Itoa(part))
	query.Set("segment", strconv.Itoa(segment))
	if term != "" {
		query.Set("search", term)
	}
	return fmt.Sprintf("%s/episode/%d/?%s", strings.TrimRight(serverURL, "/"), episodeID, query.Encode())
}

// outputEpisodeText renders the transcript for terminal display.
func outputEpisodeText(view *EpisodeOutput) error {
	fmt.Printf("Episode #%d: %s", view.ID, valueOrDefault(view.Program, "(untitled)"))
	if view.AirDate != "" {
		fmt.Printf("  [%s]", view.AirDate)
	}
	fmt.Println()
	if view.PageURL != "" {
		fmt.Printf("Page: %s\n", view.PageURL)
	}
	fmt.Println()

	if len(view.Segments) == 0 {
		fmt.Println("No matching segments.")
		return nil
	}

	lastPart := -1
	for _, s := range view.Segments {
		if s.Part != lastPart {
			fmt.Printf("--- part %d ---\n", s.Part)
			lastPart = s.Part
		}
		fmt.Printf("  [%d:%-3d] %8s  %s\n", s.Part, s.Segment, s.Clock, s.Text)
	}
	return nil
}
