package client

import (
	"context"

	"github.com/otherjamesbrown/aircheck-cli/quotes"
)

type saveHighlightsRequest struct {
	EpisodeID  int64          `json:"episode_id"`
	Highlights []quotes.Quote `json:"highlights"`
	ToDelete   []int64        `json:"to_delete"`
}

type saveHighlightsResponse struct {
	SavedQuotes []quotes.Quote `json:"saved_quotes"`
}

// SaveHighlights pushes an episode's quote working set to the archive and
// returns the server's authoritative quote list. It satisfies quotes.Saver.
func (c *Client) SaveHighlights(ctx context.Context, episodeID int64, qs []quotes.Quote, toDelete []int64) ([]quotes.Quote, error) {
	const path = "highlights/"

	req := saveHighlightsRequest{
		EpisodeID:  episodeID,
		Highlights: qs,
		ToDelete:   toDelete,
	}
	if req.Highlights == nil {
		req.Highlights = []quotes.Quote{}
	}
	if req.ToDelete == nil {
		req.ToDelete = []int64{}
	}

	var resp saveHighlightsResponse
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return resp.SavedQuotes, nil
}
