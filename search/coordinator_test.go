package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// fakeExecutor scripts responses per query text and records the queries it
// was asked to run.
type fakeExecutor struct {
	mu      sync.Mutex
	queries []Query
	results map[string]*Result
	err     error
	block   chan struct{}
}

func (f *fakeExecutor) ExecuteSearch(ctx context.Context, q Query) (*Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[q.Text]; ok {
		return res, nil
	}
	return &Result{}, nil
}

func (f *fakeExecutor) lastQuery() Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func episodes(ids ...int64) []transcript.Episode {
	out := make([]transcript.Episode, len(ids))
	for i, id := range ids {
		out[i] = transcript.Episode{ID: id}
	}
	return out
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"contains", "regex", "boolean"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseMode("fuzzy"); err == nil {
		t.Error("ParseMode(\"fuzzy\") error = nil, want error")
	}
}

func TestCommitFetchesAndResetsPage(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*Result{
		"hello": {Episodes: episodes(1, 2), PageCount: 3},
	}}
	c := NewCoordinator(exec)

	if err := c.SetPage(context.Background(), 4); err != nil {
		t.Fatalf("SetPage() error = %v", err)
	}

	c.SetInput("hello")
	if c.Committed() != "" {
		t.Error("typing committed the query")
	}

	if err := c.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	q := exec.lastQuery()
	if q.Text != "hello" || q.Page != 0 || q.PageSize != DefaultPageSize || q.Mode != ModeContains {
		t.Errorf("query = %+v, want hello page 0 size %d contains", q, DefaultPageSize)
	}

	eps, pageCount, ok := c.Results()
	if !ok || len(eps) != 2 || pageCount != 3 {
		t.Errorf("Results() = %d episodes, %d pages, %v; want 2, 3, true", len(eps), pageCount, ok)
	}
}

func TestCommitNormalizesInput(t *testing.T) {
	exec := &fakeExecutor{}
	c := NewCoordinator(exec)

	// "e" plus a combining acute accent commits as the single composed rune.
	c.SetInput("cafe\u0301")
	if err := c.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if got := exec.lastQuery().Text; got != "caf\u00e9" {
		t.Errorf("committed query = %q, want composed form", got)
	}
	if got := c.Committed(); got != "caf\u00e9" {
		t.Errorf("Committed() = %q, want composed form", got)
	}
}

func TestFetchErrorKeepsPriorResults(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*Result{
		"good": {Episodes: episodes(1), PageCount: 1},
	}}
	c := NewCoordinator(exec)

	c.SetInput("good")
	if err := c.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	exec.err = errors.New("search backend unavailable")
	c.SetInput("bad")
	if err := c.Commit(context.Background()); err == nil {
		t.Fatal("Commit() error = nil, want failure")
	}

	if c.LoadingError() == "" {
		t.Error("LoadingError() empty after failed fetch")
	}
	eps, _, ok := c.Results()
	if !ok || len(eps) != 1 || eps[0].ID != 1 {
		t.Errorf("Results() after failure = %v, want prior results kept", eps)
	}

	// A later successful fetch clears the error.
	exec.err = nil
	c.SetInput("good")
	if err := c.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.LoadingError() != "" {
		t.Errorf("LoadingError() = %q after success, want empty", c.LoadingError())
	}
}

func TestFetchWhileInFlight(t *testing.T) {
	block := make(chan struct{})
	exec := &fakeExecutor{block: block}
	c := NewCoordinator(exec)

	done := make(chan error, 1)
	go func() { done <- c.SetPage(context.Background(), 1) }()

	waitForQueries(t, exec, 1)

	if err := c.SetPage(context.Background(), 2); !acerrors.IsOperationInFlight(err) {
		t.Errorf("overlapping fetch error = %v, want ErrOperationInFlight", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first fetch error = %v", err)
	}

	exec.mu.Lock()
	calls := len(exec.queries)
	exec.mu.Unlock()
	if calls != 1 {
		t.Errorf("executor calls = %d, want 1", calls)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	block := make(chan struct{})
	exec := &fakeExecutor{
		results: map[string]*Result{"slow": {Episodes: episodes(99), PageCount: 9}},
		block:   block,
	}
	c := NewCoordinator(exec)
	c.SetInput("slow")

	done := make(chan error, 1)
	go func() { done <- c.Commit(context.Background()) }()
	waitForQueries(t, exec, 1)

	// A newer response lands while the slow fetch is still out.
	c.mu.Lock()
	c.nextGen++
	c.gen = c.nextGen
	c.episodes = episodes(1)
	c.pageCount = 1
	c.havePageCount = true
	c.mu.Unlock()

	close(block)
	if err := <-done; !acerrors.IsStaleResponse(err) {
		t.Fatalf("stale fetch error = %v, want ErrStaleResponse", err)
	}

	eps, pageCount, _ := c.Results()
	if len(eps) != 1 || eps[0].ID != 1 || pageCount != 1 {
		t.Errorf("Results() = %v pages=%d, want newer response untouched", eps, pageCount)
	}
}

func TestApplyNavState(t *testing.T) {
	exec := &fakeExecutor{}
	c := NewCoordinator(exec)

	nav := NavState{S: "query", P: 2, PS: 50}
	if err := c.ApplyNavState(context.Background(), nav); err != nil {
		t.Fatalf("ApplyNavState() error = %v", err)
	}

	q := exec.lastQuery()
	if q.Text != "query" || q.Page != 2 || q.PageSize != 50 {
		t.Errorf("query = %+v, want query/2/50", q)
	}
	if got := c.NavState(); got != nav {
		t.Errorf("NavState() = %+v, want %+v", got, nav)
	}

	// Identical state is a no-op; no second fetch.
	if err := c.ApplyNavState(context.Background(), nav); err != nil {
		t.Fatalf("ApplyNavState() repeat error = %v", err)
	}
	exec.mu.Lock()
	calls := len(exec.queries)
	exec.mu.Unlock()
	if calls != 1 {
		t.Errorf("executor calls = %d, want 1 after identical nav state", calls)
	}
}

func TestSetModeRefetchesCommitted(t *testing.T) {
	exec := &fakeExecutor{}
	c := NewCoordinator(exec)

	c.SetInput("term")
	if err := c.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.SetMode(context.Background(), ModeRegex); err != nil {
		t.Fatal(err)
	}

	q := exec.lastQuery()
	if q.Mode != ModeRegex || q.Text != "term" {
		t.Errorf("query = %+v, want regex over committed term", q)
	}
}

func TestNewCoordinatorOptions(t *testing.T) {
	c := NewCoordinator(&fakeExecutor{}, WithMode(ModeBoolean), WithPageSize(50))
	if c.Mode() != ModeBoolean {
		t.Errorf("Mode() = %v, want boolean", c.Mode())
	}
	if c.PageSize() != 50 {
		t.Errorf("PageSize() = %d, want 50", c.PageSize())
	}

	c = NewCoordinator(&fakeExecutor{}, WithPageSize(0))
	if c.PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d, want default for non-positive option", c.PageSize())
	}
}

func waitForQueries(t *testing.T, exec *fakeExecutor, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		exec.mu.Lock()
		got := len(exec.queries)
		exec.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("executor never reached %d queries", n)
		}
		time.Sleep(time.Millisecond)
	}
}
