package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client queries the Algolia Hacker News search API.
type Client struct {
	baseURL      string
	windowMonths int
	http         *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithWindowMonths changes how far back searches reach. Zero disables the
// recency filter.
func WithWindowMonths(months int) ClientOption {
	return func(c *Client) { c.windowMonths = months }
}

// NewClient creates a client against baseURL, e.g.
// "https://hn.algolia.com/api/v1".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		windowMonths: 6,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Hits []searchHit `json:"hits"`
}

type searchHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	Points      int    `json:"points"`
	Author      string `json:"author"`
	CreatedAtI  int64  `json:"created_at_i"`
	NumComments int    `json:"num_comments"`
}

// Search fetches up to limit stories matching query, newest first. A
// positive days value narrows the recency window to that many days;
// otherwise the client's month window applies.
func (c *Client) Search(ctx context.Context, query string, limit, days int) ([]Story, error) {
	if limit < 1 {
		limit = 1
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	params.Set("hitsPerPage", strconv.Itoa(limit))
	if days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days).Unix()
		params.Set("numericFilters", fmt.Sprintf("created_at_i>%d", cutoff))
	} else if c.windowMonths > 0 {
		cutoff := time.Now().AddDate(0, -c.windowMonths, 0).Unix()
		params.Set("numericFilters", fmt.Sprintf("created_at_i>%d", cutoff))
	}

	endpoint := c.baseURL + "/search_by_date?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching stories: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from search API: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	stories := make([]Story, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		if h.Title == "" {
			continue
		}
		stories = append(stories, Story{
			ID:            h.ObjectID,
			Title:         h.Title,
			URL:           h.URL,
			HNURL:         itemURL(h.ObjectID),
			Text:          h.StoryText,
			Score:         h.Points,
			Author:        h.Author,
			CreatedAt:     time.Unix(h.CreatedAtI, 0).UTC(),
			CommentsCount: h.NumComments,
		})
	}
	return stories, nil
}
