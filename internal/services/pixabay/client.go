package pixabay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"reelsmith/internal/services"
	"reelsmith/internal/storyboard"
)

// Pixabay rejects per_page outside this range.
const (
	minPerPage = 3
	maxPerPage = 200
)

// Client queries the Pixabay image search API.
type Client struct {
	baseURL string
	apiKey  string
	client  services.HTTPDoer
}

// NewClient constructs a Pixabay client. A nil doer uses http.DefaultClient.
func NewClient(baseURL, apiKey string, client services.HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

func (c *Client) Source() storyboard.Source { return storyboard.SourcePixabay }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

type searchResponse struct {
	Total     int   `json:"total"`
	TotalHits int   `json:"totalHits"`
	Hits      []hit `json:"hits"`
}

type hit struct {
	ID            int64  `json:"id"`
	PageURL       string `json:"pageURL"`
	PreviewURL    string `json:"previewURL"`
	WebformatURL  string `json:"webformatURL"`
	LargeImageURL string `json:"largeImageURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
	User          string `json:"user"`
}

// Search returns one page of photos matching query.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (storyboard.SearchPage, error) {
	if !c.Configured() {
		return storyboard.SearchPage{}, services.Wrap(services.ErrConfiguration, "pixabay", "search", "api key not configured", nil)
	}
	if page < 1 {
		page = 1
	}
	perPage = min(max(perPage, minPerPage), maxPerPage)

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("image_type", "photo")
	params.Set("orientation", "horizontal")
	params.Set("safesearch", "true")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	endpoint := fmt.Sprintf("%s/?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return storyboard.SearchPage{}, fmt.Errorf("build pixabay request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The transport error embeds the URL, which carries the key.
		return storyboard.SearchPage{}, services.Wrap(services.ErrTransient, "pixabay", "search", "request failed", nil)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return storyboard.SearchPage{}, services.StatusError("pixabay", "search", resp)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return storyboard.SearchPage{}, services.Wrap(services.ErrInvalidResponse, "pixabay", "search", "decode response", err)
	}

	items := make([]storyboard.Media, 0, len(payload.Hits))
	for _, h := range payload.Hits {
		link := h.LargeImageURL
		if link == "" {
			link = h.WebformatURL
		}
		if link == "" {
			continue
		}
		items = append(items, storyboard.Media{
			ID:          fmt.Sprintf("pixabay-%d", h.ID),
			Source:      storyboard.SourcePixabay,
			SourceID:    strconv.FormatInt(h.ID, 10),
			Type:        storyboard.MediaImage,
			PreviewURL:  h.PreviewURL,
			URL:         link,
			Width:       h.ImageWidth,
			Height:      h.ImageHeight,
			Attribution: attribution(h.User),
		})
	}
	hasMore := len(payload.Hits) > 0 && page*perPage < payload.TotalHits
	return storyboard.SearchPage{Items: items, HasMore: hasMore}, nil
}

func attribution(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return "Pixabay"
	}
	return user + " on Pixabay"
}
