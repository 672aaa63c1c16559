package compositor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

type ingestUpload struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

type ingestSource struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Source string `json:"source"`
			Error  string `json:"error"`
		} `json:"attributes"`
	} `json:"data"`
}

// publicURL returns a URL the compositor can fetch. Remote URLs pass
// through; file:// URLs are uploaded through the ingest API.
func (c *Client) publicURL(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "file" {
		return raw, nil
	}
	return c.upload(ctx, parsed.Path)
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "compositor", "ingest", "open soundtrack", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat soundtrack: %w", err)
	}

	var signed ingestUpload
	if err := c.doJSON(ctx, http.MethodPost, c.ingestURL+"/upload", []byte("{}"), "ingest", &signed); err != nil {
		return "", err
	}
	sourceID := signed.Data.Attributes.ID
	if sourceID == "" {
		sourceID = signed.Data.ID
	}
	if signed.Data.Attributes.URL == "" || sourceID == "" {
		return "", services.Wrap(services.ErrInvalidResponse, "compositor", "ingest", "upload reply carried no signed url", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.Data.Attributes.URL, file)
	if err != nil {
		return "", fmt.Errorf("build ingest upload: %w", err)
	}
	req.ContentLength = info.Size()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.RequestError("compositor", "ingest upload", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.StatusError("compositor", "ingest upload", resp)
	}
	c.logger.Info("soundtrack uploaded",
		logging.String(logging.FieldEventType, "soundtrack_ingested"),
		logging.String("source_id", sourceID),
		logging.Int("bytes", int(info.Size())),
	)
	return c.awaitSource(ctx, sourceID)
}

// awaitSource waits for the ingest API to finish processing an upload.
func (c *Client) awaitSource(ctx context.Context, sourceID string) (string, error) {
	endpoint := c.ingestURL + "/sources/" + url.PathEscape(sourceID)
	for {
		var status ingestSource
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "ingest status", &status); err != nil {
			return "", err
		}
		attrs := status.Data.Attributes
		switch attrs.Status {
		case "ready":
			if attrs.Source == "" {
				return "", services.Wrap(services.ErrInvalidResponse, "compositor", "ingest", "ready source has no url", nil)
			}
			return attrs.Source, nil
		case "failed":
			return "", services.Wrap(services.ErrTerminal, "compositor", "ingest", "source processing failed: "+attrs.Error, nil)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.ingestPoll):
		}
	}
}
