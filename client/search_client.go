package client

import (
	"context"

	"github.com/otherjamesbrown/aircheck-cli/search"
	"github.com/otherjamesbrown/aircheck-cli/transcript"
)

type searchRequest struct {
	Type     string `json:"type"`
	Query    string `json:"query"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type searchResponse struct {
	Results []episodeWire `json:"results"`
	Count   int           `json:"count"`
}

// ExecuteSearch runs a transcript search. It satisfies search.Executor, so a
// Client can back a search.Coordinator directly.
func (c *Client) ExecuteSearch(ctx context.Context, q search.Query) (*search.Result, error) {
	const path = "search/"

	req := searchRequest{
		Type:     string(q.Mode),
		Query:    q.Text,
		Page:     q.Page,
		PageSize: q.PageSize,
	}

	var resp searchResponse
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}

	episodes := make([]transcript.Episode, 0, len(resp.Results))
	for _, w := range resp.Results {
		ep, err := decodeEpisode(w, path)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *ep)
	}

	return &search.Result{Episodes: episodes, PageCount: resp.Count}, nil
}
