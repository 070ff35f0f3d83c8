package quotes

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// SaveStatus tracks where the working set stands relative to the server.
type SaveStatus int

const (
	// StatusDefault means nothing has been touched since the last pull.
	// It is the only state in which a save is not allowed.
	StatusDefault SaveStatus = iota

	// StatusUnsaved means the working set has local changes.
	StatusUnsaved

	// StatusInProgress means a save is currently running.
	StatusInProgress

	// StatusSaved means the working set mirrors the server's last response.
	StatusSaved

	// StatusError means the last save failed; local changes are intact.
	StatusError
)

var statusNames = map[SaveStatus]string{
	StatusDefault:    "default",
	StatusUnsaved:    "unsaved",
	StatusInProgress: "in_progress",
	StatusSaved:      "saved",
	StatusError:      "error",
}

func (s SaveStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// MarshalYAML stores the status under its stable string name.
func (s SaveStatus) MarshalYAML() (interface{}, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: save status %d", acerrors.ErrInvalidState, int(s))
	}
	return name, nil
}

// UnmarshalYAML accepts the string names produced by MarshalYAML.
func (s *SaveStatus) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("%w: save status %q", acerrors.ErrInvalidState, name)
}

// Quote is one saved (or to-be-saved) quote on an episode. A nil ID marks a
// quote the server has never seen.
type Quote struct {
	ID           *int64                          `json:"id" yaml:"id"`
	EpisodeID    int64                           `json:"episode_id" yaml:"episode_id"`
	Title        string                          `json:"title" yaml:"title"`
	SpeakerName  string                          `json:"speaker_name,omitempty" yaml:"speaker_name,omitempty"`
	Range        []transcript.SegmentWithContent `json:"range" yaml:"range"`
	OriginalText string                          `json:"original_text" yaml:"original_text"`
	FixedText    string                          `json:"fixed_text,omitempty" yaml:"fixed_text,omitempty"`
}

// Saver pushes the working set to the archive. On success it returns the
// server's authoritative quote list, which replaces the local one wholesale.
type Saver interface {
	SaveHighlights(ctx context.Context, episodeID int64, quotes []Quote, toDelete []int64) ([]Quote, error)
}

// Collection is the local working set of one episode's quotes. All methods
// are safe for concurrent use; Save releases the lock for the duration of
// the network call and rejects overlapping saves.
type Collection struct {
	mu sync.Mutex

	episodeID int64
	quotes    []Quote

	// toDelete accumulates server ids of deleted quotes. Ids are only ever
	// appended; the set survives successful saves so a re-push cannot
	// resurrect a deleted quote.
	toDelete []int64

	// samplingFor is the index of the quote currently collecting segments,
	// or -1 when none is.
	samplingFor int

	status SaveStatus
}

// NewCollection builds a working set seeded with the server's current quotes.
func NewCollection(episodeID int64, existing []Quote) *Collection {
	c := &Collection{
		episodeID:   episodeID,
		quotes:      make([]Quote, len(existing)),
		samplingFor: -1,
		status:      StatusDefault,
	}
	copy(c.quotes, existing)
	return c
}

// EpisodeID returns the episode this working set belongs to.
func (c *Collection) EpisodeID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.episodeID
}

// Quotes returns a copy of the current quote list.
func (c *Collection) Quotes() []Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Quote, len(c.quotes))
	copy(out, c.quotes)
	return out
}

// PendingDeletes returns a copy of the accumulated delete ids.
func (c *Collection) PendingDeletes() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.toDelete))
	copy(out, c.toDelete)
	return out
}

// Status returns the current save status.
func (c *Collection) Status() SaveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SamplingTarget returns the index of the quote collecting segments, if any.
func (c *Collection) SamplingTarget() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.samplingFor < 0 {
		return 0, false
	}
	return c.samplingFor, true
}

// CanSave reports whether a save is currently allowed.
func (c *Collection) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != StatusDefault
}

// Add appends a new empty quote, makes it the sampling target, and returns
// its index.
func (c *Collection) Add() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quotes = append(c.quotes, Quote{
		ID:        nil,
		EpisodeID: c.episodeID,
	})
	c.samplingFor = len(c.quotes) - 1
	c.status = StatusUnsaved
	return c.samplingFor
}

// EditTitle sets the title of the quote at index.
func (c *Collection) EditTitle(index int, title string) error {
	return c.edit(index, func(q *Quote) { q.Title = title })
}

// EditSpeaker sets the speaker name of the quote at index.
func (c *Collection) EditSpeaker(index int, speaker string) error {
	return c.edit(index, func(q *Quote) { q.SpeakerName = speaker })
}

// EditFixedText sets the cleaned-up text of the quote at index. The
// original text stays derived from the range and is never edited directly.
func (c *Collection) EditFixedText(index int, text string) error {
	return c.edit(index, func(q *Quote) { q.FixedText = text })
}

func (c *Collection) edit(index int, apply func(*Quote)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.quotes) {
		return fmt.Errorf("%w: quote %d", acerrors.ErrNotFound, index)
	}
	apply(&c.quotes[index])
	c.status = StatusUnsaved
	return nil
}

// Delete removes the quote at index. A server-assigned id is recorded for
// deletion on the next save; a never-saved quote just disappears. The
// sampling target is cleared when it pointed at the removed quote and
// shifted down when it pointed past it.
func (c *Collection) Delete(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.quotes) {
		return fmt.Errorf("%w: quote %d", acerrors.ErrNotFound, index)
	}

	if id := c.quotes[index].ID; id != nil {
		c.toDelete = append(c.toDelete, *id)
	}

	c.quotes = append(c.quotes[:index], c.quotes[index+1:]...)

	switch {
	case c.samplingFor == index:
		c.samplingFor = -1
	case c.samplingFor > index:
		c.samplingFor--
	}

	c.status = StatusUnsaved
	return nil
}

// SetSamplingTarget directs subsequent segment toggles at the quote at index.
func (c *Collection) SetSamplingTarget(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.quotes) {
		return fmt.Errorf("%w: quote %d", acerrors.ErrNotFound, index)
	}
	c.samplingFor = index
	return nil
}

// ClearSamplingTarget stops segment collection without touching any quote.
func (c *Collection) ClearSamplingTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samplingFor = -1
}

// ToggleSegment adds or removes a segment on the sampling target's range and
// rederives its original text. It reports false, without changing anything,
// when no sampling target is active.
func (c *Collection) ToggleSegment(segment transcript.SegmentWithContent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.samplingFor < 0 || c.samplingFor >= len(c.quotes) {
		return false
	}

	q := &c.quotes[c.samplingFor]
	q.Range = ToggleSelection(q.Range, segment)
	q.OriginalText = ComposeText(q.Range)
	return true
}

// Validate checks that every quote carries the fields the server requires.
// The first incomplete quote fails the whole set.
func (c *Collection) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *Collection) validateLocked() error {
	for i, q := range c.quotes {
		if q.OriginalText == "" || q.Title == "" || q.SpeakerName == "" {
			return fmt.Errorf("%w: quote %d needs a title, speaker, and at least one segment", acerrors.ErrMissingRequiredField, i)
		}
	}
	return nil
}

// Save validates the working set and pushes it to the archive. On success
// the server's returned quote list replaces the local one and the status
// becomes saved; on failure the status becomes error and local quotes are
// untouched either way. A save that overlaps another returns
// ErrOperationInFlight without doing anything.
func (c *Collection) Save(ctx context.Context, saver Saver) error {
	c.mu.Lock()

	if c.status == StatusInProgress {
		c.mu.Unlock()
		return acerrors.ErrOperationInFlight
	}
	if c.status == StatusDefault {
		c.mu.Unlock()
		return fmt.Errorf("%w: nothing to save", acerrors.ErrInvalidState)
	}
	if err := c.validateLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	episodeID := c.episodeID
	quotes := make([]Quote, len(c.quotes))
	copy(quotes, c.quotes)
	toDelete := make([]int64, len(c.toDelete))
	copy(toDelete, c.toDelete)

	c.status = StatusInProgress
	c.mu.Unlock()

	saved, err := saver.SaveHighlights(ctx, episodeID, quotes, toDelete)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = StatusError
		return err
	}

	c.quotes = saved
	if c.samplingFor >= len(c.quotes) {
		c.samplingFor = -1
	}
	c.status = StatusSaved
	return nil
}

// State is the serializable snapshot of a working set, used to persist a
// quote-editing session between CLI invocations.
type State struct {
	EpisodeID int64      `yaml:"episode_id"`
	Quotes    []Quote    `yaml:"quotes"`
	ToDelete  []int64    `yaml:"to_delete,omitempty"`
	Sampling  *int       `yaml:"sampling_for,omitempty"`
	Status    SaveStatus `yaml:"status"`
}

// State snapshots the working set.
func (c *Collection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		EpisodeID: c.episodeID,
		Quotes:    make([]Quote, len(c.quotes)),
		ToDelete:  make([]int64, len(c.toDelete)),
		Status:    c.status,
	}
	copy(s.Quotes, c.quotes)
	copy(s.ToDelete, c.toDelete)
	if c.samplingFor >= 0 {
		target := c.samplingFor
		s.Sampling = &target
	}
	return s
}

// FromState rebuilds a working set from a snapshot. An in-progress status is
// demoted to unsaved: the save it described did not outlive the process that
// started it.
func FromState(s State) *Collection {
	c := &Collection{
		episodeID:   s.EpisodeID,
		quotes:      make([]Quote, len(s.Quotes)),
		toDelete:    make([]int64, len(s.ToDelete)),
		samplingFor: -1,
		status:      s.Status,
	}
	copy(c.quotes, s.Quotes)
	copy(c.toDelete, s.ToDelete)
	if s.Sampling != nil && *s.Sampling >= 0 && *s.Sampling < len(c.quotes) {
		c.samplingFor = *s.Sampling
	}
	if c.status == StatusInProgress {
		c.status = StatusUnsaved
	}
	return c
}
