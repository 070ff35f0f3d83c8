// Package transcript defines the episode and segment data model for the
// broadcast archive, and the timeline math that maps a segment's local
// offset to a playable position in the full episode recording.
package transcript

// SegmentAddress identifies one recognized utterance on an episode's
// timeline: the episode, the part (recording chunk) within it, and the
// segment index within that part.
type SegmentAddress struct {
	// EpisodeID is the server-assigned episode identifier.
	EpisodeID int64 `json:"episode_id" yaml:"episode_id"`

	// Part is the zero-based index of the recording chunk within the episode.
	Part int `json:"part" yaml:"part"`

	// Segment is the zero-based index of the utterance within its part.
	Segment int `json:"segment" yaml:"segment"`
}

// Equal reports whether two addresses identify the same utterance.
// Text content never participates in identity.
func (a SegmentAddress) Equal(b SegmentAddress) bool {
	return a == b
}

// Less reports canonical timeline order: by part, then by segment.
func (a SegmentAddress) Less(b SegmentAddress) bool {
	if a.Part != b.Part {
		return a.Part < b.Part
	}
	return a.Segment < b.Segment
}

// SegmentWithContent is an address plus the recognized text at that address.
// It is the unit of quote selection.
type SegmentWithContent struct {
	SegmentAddress `yaml:",inline"`

	// Text is the best recognition alternative for the utterance.
	Text string `json:"text" yaml:"text"`
}
