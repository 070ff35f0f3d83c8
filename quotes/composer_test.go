package quotes

import (
	"reflect"
	"testing"

	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

func seg(part, segment int, text string) transcript.SegmentWithContent {
	return transcript.SegmentWithContent{
		SegmentAddress: transcript.SegmentAddress{EpisodeID: 1, Part: part, Segment: segment},
		Text:           text,
	}
}

func TestToggleSelectionAddAndRemove(t *testing.T) {
	var rng []transcript.SegmentWithContent

	rng = ToggleSelection(rng, seg(0, 5, "five"))
	rng = ToggleSelection(rng, seg(0, 2, "two"))
	rng = ToggleSelection(rng, seg(1, 0, "later"))

	want := []transcript.SegmentWithContent{seg(0, 2, "two"), seg(0, 5, "five"), seg(1, 0, "later")}
	if !reflect.DeepEqual(rng, want) {
		t.Fatalf("range after adds = %+v, want %+v", rng, want)
	}

	rng = ToggleSelection(rng, seg(0, 5, "five"))
	want = []transcript.SegmentWithContent{seg(0, 2, "two"), seg(1, 0, "later")}
	if !reflect.DeepEqual(rng, want) {
		t.Errorf("range after removal = %+v, want %+v", rng, want)
	}
}

func TestToggleSelectionInvolution(t *testing.T) {
	base := []transcript.SegmentWithContent{seg(0, 1, "a"), seg(0, 3, "c")}
	candidate := seg(0, 2, "b")

	got := ToggleSelection(ToggleSelection(base, candidate), candidate)
	if !reflect.DeepEqual(got, base) {
		t.Errorf("toggling twice = %+v, want original %+v", got, base)
	}
}

func TestToggleSelectionMatchesByAddressOnly(t *testing.T) {
	// Same text at a different address is a distinct segment.
	rng := []transcript.SegmentWithContent{seg(0, 1, "echo")}
	got := ToggleSelection(rng, seg(0, 2, "echo"))
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	// Same address with drifted text still removes.
	got = ToggleSelection(rng, seg(0, 1, "different text"))
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestToggleSelectionDoesNotMutateInput(t *testing.T) {
	base := []transcript.SegmentWithContent{seg(0, 5, "five"), seg(0, 7, "seven")}
	snapshot := make([]transcript.SegmentWithContent, len(base))
	copy(snapshot, base)

	ToggleSelection(base, seg(0, 1, "one"))
	if !reflect.DeepEqual(base, snapshot) {
		t.Errorf("input mutated: %+v, want %+v", base, snapshot)
	}
}

func TestComposeText(t *testing.T) {
	tests := []struct {
		name string
		rng  []transcript.SegmentWithContent
		want string
	}{
		{"empty", nil, ""},
		{"single", []transcript.SegmentWithContent{seg(0, 1, "hello")}, "hello"},
		{
			"sorted by address not selection order",
			[]transcript.SegmentWithContent{seg(1, 0, "end"), seg(0, 2, "middle"), seg(0, 1, "start")},
			"start middle end",
		},
		{
			"empty segment text keeps its slot",
			[]transcript.SegmentWithContent{seg(0, 1, "a"), seg(0, 2, ""), seg(0, 3, "b")},
			"a  b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeText(tt.rng); got != tt.want {
				t.Errorf("ComposeText() = %q, want %q", got, tt.want)
			}
		})
	}
}
