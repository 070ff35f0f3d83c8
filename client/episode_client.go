package client

import (
	"context"
	"encoding/json"
	"fmt"

	acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
	"github.com/otherjamesbrown/aircheck-cli/quotes"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

// episodeWire is an episode as the archive serves it. The recording file
// list and the transcripts arrive JSON-encoded inside strings and need a
// second decoding pass.
type episodeWire struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	AirDate      string `json:"air_date"`
	LocalStorage string `json:"local_storage"`
	FileURL      string `json:"file_url"`
	Transcripts  string `json:"transcripts"`
	PageURL      string `json:"page_url"`
}

// transcriptChunk is one recognizer output block within a part. Each part
// carries a list of chunks; only the first holds the part's results.
type transcriptChunk struct {
	Transcript struct {
		Results []struct {
			Offset       string   `json:"offset"`
			Alternatives []string `json:"alternatives"`
		} `json:"results"`
	} `json:"transcript"`
}

type episodeResponse struct {
	Episode    episodeWire    `json:"episode"`
	Highlights []quotes.Quote `json:"highlights"`
}

// GetEpisode fetches one episode with its transcripts and saved quotes.
func (c *Client) GetEpisode(ctx context.Context, id int64) (*transcript.Episode, []quotes.Quote, error) {
	path := fmt.Sprintf("episode/%d", id)

	var resp episodeResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, nil, err
	}

	ep, err := decodeEpisode(resp.Episode, path)
	if err != nil {
		return nil, nil, err
	}
	return ep, resp.Highlights, nil
}

// decodeEpisode unpacks the string-embedded JSON fields of the wire form.
func decodeEpisode(w episodeWire, endpoint string) (*transcript.Episode, error) {
	ep := &transcript.Episode{
		ID:        w.ID,
		Program:   w.Title,
		AirDate:   w.AirDate,
		RemoteURL: w.FileURL,
		PageURL:   w.PageURL,
	}

	if w.LocalStorage != "" {
		if err := json.Unmarshal([]byte(w.LocalStorage), &ep.Files); err != nil {
			return nil, badEpisodeField(endpoint, w.ID, "local_storage", err)
		}
	}

	if w.Transcripts != "" {
		var parts [][]transcriptChunk
		if err := json.Unmarshal([]byte(w.Transcripts), &parts); err != nil {
			return nil, badEpisodeField(endpoint, w.ID, "transcripts", err)
		}
		ep.Parts = make([][]transcript.Utterance, len(parts))
		for i, chunks := range parts {
			if len(chunks) == 0 {
				continue
			}
			results := chunks[0].Transcript.Results
			utterances := make([]transcript.Utterance, len(results))
			for j, r := range results {
				utterances[j] = transcript.Utterance{Offset: r.Offset, Alternatives: r.Alternatives}
			}
			ep.Parts[i] = utterances
		}
	}

	return ep, nil
}

func badEpisodeField(endpoint string, id int64, field string, err error) error {
	return &acerrors.CollaboratorError{
		Code:     acerrors.ErrBadResponse,
		Endpoint: endpoint,
		Message:  fmt.Sprintf("episode %d: decode %s: %v", id, field, err),
		Cause:    err,
	}
}
