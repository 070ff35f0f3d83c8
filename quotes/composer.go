// Package quotes implements quote composition and the local working set of
// an episode's saved quotes: selecting transcript segments into a quote,
// editing quote fields, and reconciling the working set with the archive
// server.
package quotes

import (
	"sort"
	"strings"

	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// ToggleSelection returns a new range with candidate added or removed.
// Membership is decided by address equality only; two segments with the same
// text at different addresses are both selectable. The result is always in
// canonical (part, segment) order, so toggling (0,5) then (0,2) composes
// text in timeline order regardless of selection order. Applying the same
// candidate twice returns the original range.
func ToggleSelection(activeRange []transcript.SegmentWithContent, candidate transcript.SegmentWithContent) []transcript.SegmentWithContent {
	out := make([]transcript.SegmentWithContent, 0, len(activeRange)+1)

	removed := false
	for _, s := range activeRange {
		if s.SegmentAddress.Equal(candidate.SegmentAddress) {
			removed = true
			continue
		}
		out = append(out, s)
	}

	if !removed {
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SegmentAddress.Less(out[j].SegmentAddress)
	})

	return out
}

// ComposeText derives a quote's original text from its range: the segment
// texts in canonical order, joined by single spaces.
func ComposeText(rng []transcript.SegmentWithContent) string {
	sorted := make([]transcript.SegmentWithContent, len(rng))
	copy(sorted, rng)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SegmentAddress.Less(sorted[j].SegmentAddress)
	})

	texts := make([]string, len(sorted))
	for i, s := range sorted {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}
