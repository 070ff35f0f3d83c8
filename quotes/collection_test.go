package quotes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
)

func int64Ptr(v int64) *int64 { return &v }

// fakeSaver scripts SaveHighlights responses and records what it was sent.
type fakeSaver struct {
	mu       sync.Mutex
	saved    []Quote
	err      error
	calls    int
	gotQuotes   []Quote
	gotToDelete []int64
	block    chan struct{}
}

func (f *fakeSaver) SaveHighlights(ctx context.Context, episodeID int64, quotes []Quote, toDelete []int64) ([]Quote, error) {
	f.mu.Lock()
	f.calls++
	f.gotQuotes = quotes
	f.gotToDelete = toDelete
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.saved, nil
}

func newCompleteQuote(id *int64, title string) Quote {
	return Quote{
		ID:           id,
		EpisodeID:    42,
		Title:        title,
		SpeakerName:  "Host",
		OriginalText: "something said",
	}
}

func TestAddQuote(t *testing.T) {
	c := NewCollection(42, nil)

	if c.Status() != StatusDefault {
		t.Fatalf("initial status = %v, want default", c.Status())
	}
	if c.CanSave() {
		t.Fatal("CanSave() = true before any change")
	}

	idx := c.Add()
	if idx != 0 {
		t.Errorf("Add() = %d, want 0", idx)
	}
	if c.Status() != StatusUnsaved {
		t.Errorf("status after add = %v, want unsaved", c.Status())
	}
	target, ok := c.SamplingTarget()
	if !ok || target != 0 {
		t.Errorf("SamplingTarget() = %d, %v, want 0, true", target, ok)
	}

	q := c.Quotes()[0]
	if q.ID != nil || q.EpisodeID != 42 || q.Title != "" || q.OriginalText != "" || len(q.Range) != 0 {
		t.Errorf("new quote = %+v, want empty quote on episode 42", q)
	}
}

func TestToggleSegmentComposesText(t *testing.T) {
	c := NewCollection(42, nil)
	c.Add()

	if !c.ToggleSegment(seg(0, 5, "world")) {
		t.Fatal("ToggleSegment() = false with active target")
	}
	c.ToggleSegment(seg(0, 2, "hello"))

	q := c.Quotes()[0]
	if q.OriginalText != "hello world" {
		t.Errorf("OriginalText = %q, want \"hello world\"", q.OriginalText)
	}

	// Remove one selection; text follows.
	c.ToggleSegment(seg(0, 2, "hello"))
	if got := c.Quotes()[0].OriginalText; got != "world" {
		t.Errorf("OriginalText after removal = %q, want \"world\"", got)
	}
}

func TestToggleSegmentNoTarget(t *testing.T) {
	c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(1), "kept")})

	if c.ToggleSegment(seg(0, 1, "stray")) {
		t.Fatal("ToggleSegment() = true with no sampling target")
	}
	if got := c.Quotes()[0].OriginalText; got != "something said" {
		t.Errorf("quote text changed to %q with no target", got)
	}
}

func TestDeleteRecordsTombstoneOnce(t *testing.T) {
	c := NewCollection(42, []Quote{
		newCompleteQuote(int64Ptr(7), "first"),
		newCompleteQuote(nil, "never saved"),
	})

	if err := c.Delete(0); err != nil {
		t.Fatalf("Delete(0) error = %v", err)
	}
	if got := c.PendingDeletes(); len(got) != 1 || got[0] != 7 {
		t.Fatalf("PendingDeletes() = %v, want [7]", got)
	}

	// Deleting a quote the server never saw leaves no tombstone.
	if err := c.Delete(0); err != nil {
		t.Fatalf("Delete(0) error = %v", err)
	}
	if got := c.PendingDeletes(); len(got) != 1 || got[0] != 7 {
		t.Errorf("PendingDeletes() = %v, want [7]", got)
	}

	if c.Status() != StatusUnsaved {
		t.Errorf("status = %v, want unsaved", c.Status())
	}
}

func TestDeleteAdjustsSamplingTarget(t *testing.T) {
	c := NewCollection(42, []Quote{
		newCompleteQuote(int64Ptr(1), "a"),
		newCompleteQuote(int64Ptr(2), "b"),
		newCompleteQuote(int64Ptr(3), "c"),
	})

	// Target cleared when it pointed at the removed quote.
	if err := c.SetSamplingTarget(1); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(1); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.SamplingTarget(); ok {
		t.Error("sampling target survived deletion of its quote")
	}

	// Target shifted down when it pointed past the removed quote.
	if err := c.SetSamplingTarget(1); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(0); err != nil {
		t.Fatal(err)
	}
	target, ok := c.SamplingTarget()
	if !ok || target != 0 {
		t.Errorf("SamplingTarget() = %d, %v, want 0, true", target, ok)
	}
}

func TestDeleteOutOfRange(t *testing.T) {
	c := NewCollection(42, nil)
	if err := c.Delete(0); !acerrors.IsNotFound(err) {
		t.Errorf("Delete(0) error = %v, want ErrNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Quote)
		wantErr bool
	}{
		{"complete", func(q *Quote) {}, false},
		{"missing title", func(q *Quote) { q.Title = "" }, true},
		{"missing speaker", func(q *Quote) { q.SpeakerName = "" }, true},
		{"missing text", func(q *Quote) { q.OriginalText = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newCompleteQuote(nil, "t")
			tt.mutate(&q)
			c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(1), "ok"), q})

			err := c.Validate()
			if tt.wantErr {
				if !acerrors.IsMissingRequiredField(err) {
					t.Errorf("Validate() error = %v, want ErrMissingRequiredField", err)
				}
			} else if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestSaveSuccessReplacesQuotes(t *testing.T) {
	c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(7), "old")})
	if err := c.Delete(0); err != nil {
		t.Fatal(err)
	}
	idx := c.Add()
	c.SetSamplingTarget(idx)
	c.ToggleSegment(seg(0, 1, "fresh words"))
	c.EditTitle(idx, "fresh")
	c.EditSpeaker(idx, "Guest")

	saver := &fakeSaver{saved: []Quote{newCompleteQuote(int64Ptr(9), "fresh")}}
	if err := c.Save(context.Background(), saver); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if c.Status() != StatusSaved {
		t.Errorf("status = %v, want saved", c.Status())
	}
	got := c.Quotes()
	if len(got) != 1 || got[0].ID == nil || *got[0].ID != 9 {
		t.Errorf("quotes = %+v, want server copy with id 9", got)
	}
	if len(saver.gotToDelete) != 1 || saver.gotToDelete[0] != 7 {
		t.Errorf("sent to_delete = %v, want [7]", saver.gotToDelete)
	}

	// Tombstones survive the save.
	if got := c.PendingDeletes(); len(got) != 1 || got[0] != 7 {
		t.Errorf("PendingDeletes() after save = %v, want [7]", got)
	}
}

func TestSaveFailureKeepsLocalEdits(t *testing.T) {
	c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(1), "mine")})
	c.EditTitle(0, "edited locally")

	saver := &fakeSaver{err: errors.New("server rejected highlights")}
	if err := c.Save(context.Background(), saver); err == nil {
		t.Fatal("Save() error = nil, want failure")
	}

	if c.Status() != StatusError {
		t.Errorf("status = %v, want error", c.Status())
	}
	if got := c.Quotes()[0].Title; got != "edited locally" {
		t.Errorf("local title = %q, want edit preserved", got)
	}

	// Editing after a failed save returns to unsaved.
	c.EditTitle(0, "edited again")
	if c.Status() != StatusUnsaved {
		t.Errorf("status after edit = %v, want unsaved", c.Status())
	}
}

func TestSaveWhileInProgress(t *testing.T) {
	c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(1), "t")})
	c.EditTitle(0, "t")

	block := make(chan struct{})
	saver := &fakeSaver{saved: []Quote{newCompleteQuote(int64Ptr(1), "t")}, block: block}

	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background(), saver) }()

	// Wait until the first save is inside the saver call.
	for c.Status() != StatusInProgress {
		time.Sleep(time.Millisecond)
	}

	if err := c.Save(context.Background(), saver); !acerrors.IsOperationInFlight(err) {
		t.Errorf("overlapping Save() error = %v, want ErrOperationInFlight", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if saver.calls != 1 {
		t.Errorf("saver calls = %d, want 1", saver.calls)
	}
}

func TestSaveRequiresChanges(t *testing.T) {
	c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(1), "t")})

	err := c.Save(context.Background(), &fakeSaver{})
	if !errors.Is(err, acerrors.ErrInvalidState) {
		t.Errorf("Save() on untouched set error = %v, want ErrInvalidState", err)
	}
}

func TestSaveValidatesFirst(t *testing.T) {
	c := NewCollection(42, nil)
	c.Add()

	saver := &fakeSaver{}
	if err := c.Save(context.Background(), saver); !acerrors.IsMissingRequiredField(err) {
		t.Errorf("Save() error = %v, want ErrMissingRequiredField", err)
	}
	if saver.calls != 0 {
		t.Errorf("saver calls = %d, want 0", saver.calls)
	}
	if c.Status() != StatusUnsaved {
		t.Errorf("status = %v, want unsaved after blocked save", c.Status())
	}
}

func TestStateRoundTrip(t *testing.T) {
	c := NewCollection(42, []Quote{newCompleteQuote(int64Ptr(7), "kept")})
	c.Delete(0)
	idx := c.Add()
	c.EditTitle(idx, "wip")
	c.ToggleSegment(seg(0, 3, "words"))

	data, err := yaml.Marshal(c.State())
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	restored := FromState(s)

	if restored.Status() != StatusUnsaved {
		t.Errorf("restored status = %v, want unsaved", restored.Status())
	}
	if got := restored.PendingDeletes(); len(got) != 1 || got[0] != 7 {
		t.Errorf("restored deletes = %v, want [7]", got)
	}
	target, ok := restored.SamplingTarget()
	if !ok || target != 0 {
		t.Errorf("restored SamplingTarget() = %d, %v, want 0, true", target, ok)
	}
	if got := restored.Quotes()[0].OriginalText; got != "words" {
		t.Errorf("restored text = %q, want \"words\"", got)
	}
}

func TestFromStateDemotesInProgress(t *testing.T) {
	c := FromState(State{EpisodeID: 42, Status: StatusInProgress})
	if c.Status() != StatusUnsaved {
		t.Errorf("status = %v, want unsaved", c.Status())
	}
}
