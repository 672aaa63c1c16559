package pexels

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

const (
	maxPerPage     = 80
	preferredWidth = 1920
)

// Client queries the Pexels video search API.
type Client struct {
	baseURL string
	apiKey  string
	client  services.HTTPDoer
}

// NewClient constructs a Pexels client. A nil doer uses http.DefaultClient.
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

// Source identifies the provider.
func (c *Client) Source() storyboard.Source { return storyboard.SourcePexels }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

type searchResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	NextPage     string  `json:"next_page"`
	Videos       []video `json:"videos"`
}

type video struct {
	ID       int64   `json:"id"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	URL      string  `json:"url"`
	Image    string  `json:"image"`
	User     struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"user"`
	Files []videoFile `json:"video_files"`
}

type videoFile struct {
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Search returns one page of videos matching query.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (storyboard.SearchPage, error) {
	if !c.Configured() {
		return storyboard.SearchPage{}, services.Wrap(services.ErrConfiguration, "pexels", "search", "api key not configured", nil)
	}
	if page < 1 {
		page = 1
	}
	perPage = min(max(perPage, 1), maxPerPage)

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	endpoint := fmt.Sprintf("%s/videos/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return storyboard.SearchPage{}, fmt.Errorf("build pexels request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return storyboard.SearchPage{}, services.RequestError("pexels", "search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return storyboard.SearchPage{}, services.StatusError("pexels", "search", resp)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return storyboard.SearchPage{}, services.Wrap(services.ErrInvalidResponse, "pexels", "search", "decode response", err)
	}

	items := make([]storyboard.Media, 0, len(payload.Videos))
	for _, v := range payload.Videos {
		file, ok := bestFile(v.Files)
		if !ok {
			continue
		}
		items = append(items, storyboard.Media{
			ID:              fmt.Sprintf("pexels-%d", v.ID),
			Source:          storyboard.SourcePexels,
			SourceID:        strconv.FormatInt(v.ID, 10),
			Type:            storyboard.MediaVideo,
			PreviewURL:      v.Image,
			URL:             file.Link,
			Width:           file.Width,
			Height:          file.Height,
			Attribution:     attribution(v.User.Name),
			DurationSeconds: v.Duration,
		})
	}
	hasMore := payload.NextPage != "" || page*perPage < payload.TotalResults
	return storyboard.SearchPage{Items: items, HasMore: hasMore && len(payload.Videos) > 0}, nil
}

// bestFile picks the widest mp4 rendition no wider than 1080p, falling back
// to the smallest one available.
func bestFile(files []videoFile) (videoFile, bool) {
	var best, smallest videoFile
	found := false
	for _, f := range files {
		if f.Link == "" || (f.FileType != "" && f.FileType != "video/mp4") {
			continue
		}
		if smallest.Link == "" || f.Width < smallest.Width {
			smallest = f
		}
		if f.Width <= preferredWidth && f.Width > best.Width {
			best = f
			found = true
		}
	}
	if found {
		return best, true
	}
	return smallest, smallest.Link != ""
}

func attribution(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Pexels"
	}
	return name + " on Pexels"
}
