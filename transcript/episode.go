package transcript

// Utterance is a single recognized span within a part's transcript.
type Utterance struct {
	// Offset is the local "hh:mm:ss" position within the part's recording.
	Offset string `json:"offset" yaml:"offset"`

	// Alternatives holds recognition hypotheses, best first. May be empty
	// when the recognizer produced nothing usable for the span.
	Alternatives []string `json:"alternatives" yaml:"alternatives"`
}

// Text returns the best recognition alternative, or "" when there is none.
func (u Utterance) Text() string {
	if len(u.Alternatives) == 0 {
		return ""
	}
	return u.Alternatives[0]
}

// Episode is one archived broadcast: its metadata, the recording chunks it
// was split into, and the per-part transcripts.
type Episode struct {
	// ID is the server-assigned episode identifier.
	ID int64 `json:"id" yaml:"id"`

	// Program is the broadcast title.
	Program string `json:"program" yaml:"program"`

	// AirDate is the original air date as reported by the archive.
	AirDate string `json:"air_date" yaml:"air_date"`

	// Files lists the per-part recording file names, in part order.
	Files []string `json:"files" yaml:"files"`

	// Parts holds one transcript per recording file, aligned with Files.
	Parts [][]Utterance `json:"parts" yaml:"parts"`

	// RemoteURL is the playable recording location.
	RemoteURL string `json:"remote_url" yaml:"remote_url"`

	// PageURL links back to the broadcaster's episode page.
	PageURL string `json:"page_url" yaml:"page_url"`
}

// Segment returns the utterance at the given part and segment index, or
// false when the address is out of range.
func (e *Episode) Segment(part, segment int) (Utterance, bool) {
	if part < 0 || part >= len(e.Parts) {
		return Utterance{}, false
	}
	if segment < 0 || segment >= len(e.Parts[part]) {
		return Utterance{}, false
	}
	return e.Parts[part][segment], true
}

// SegmentWithContent builds the selectable form of the utterance at the
// given address, or false when the address is out of range.
func (e *Episode) SegmentWithContent(part, segment int) (SegmentWithContent, bool) {
	u, ok := e.Segment(part, segment)
	if !ok {
		return SegmentWithContent{}, false
	}
	return SegmentWithContent{
		SegmentAddress: SegmentAddress{EpisodeID: e.ID, Part: part, Segment: segment},
		Text:           u.Text(),
	}, true
}
