package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"reelsmith/internal/logging"
	"reelsmith/internal/production"
	"reelsmith/internal/services"
)

const watchURL = "https://www.youtube.com/watch?v="

// Config holds upload credentials and defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CategoryID   string
	// TempDir receives downloaded renders before upload.
	TempDir string
}

// Publisher uploads videos. It implements the pipeline's publisher.
type Publisher struct {
	cfg         Config
	download    services.HTTPDoer
	serviceOpts []option.ClientOption
	logger      *slog.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithDownloadClient sets the client used to fetch the rendered video.
func WithDownloadClient(client services.HTTPDoer) Option {
	return func(p *Publisher) {
		if client != nil {
			p.download = client
		}
	}
}

// WithServiceOptions replaces the OAuth setup with explicit API client
// options, such as a test endpoint.
func WithServiceOptions(opts ...option.ClientOption) Option {
	return func(p *Publisher) {
		p.serviceOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logging.NewComponentLogger(logger, "youtube")
	}
}

// New constructs a Publisher.
func New(cfg Config, opts ...Option) *Publisher {
	p := &Publisher{
		cfg:      cfg,
		download: http.DefaultClient,
		logger:   logging.NewComponentLogger(nil, "youtube"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configured reports whether OAuth credentials are complete.
func (p *Publisher) Configured() bool {
	if len(p.serviceOpts) > 0 {
		return true
	}
	return strings.TrimSpace(p.cfg.ClientID) != "" &&
		strings.TrimSpace(p.cfg.ClientSecret) != "" &&
		strings.TrimSpace(p.cfg.RefreshToken) != ""
}

func (p *Publisher) service(ctx context.Context) (*yt.Service, error) {
	if len(p.serviceOpts) > 0 {
		return yt.NewService(ctx, p.serviceOpts...)
	}
	if !p.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "auth", "client id, client secret and refresh token are required", nil)
	}
	conf := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeScope},
	}
	// An expired token forces a refresh on first use.
	token := &oauth2.Token{RefreshToken: p.cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	return yt.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
}

// Upload fetches the render and inserts it as a new video. A thumbnail
// failure is logged, not returned, since the video is already live.
func (p *Publisher) Upload(ctx context.Context, videoURL string, meta production.Metadata) (production.Publication, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return production.Publication{}, fmt.Errorf("youtube service: %w", err)
	}

	path, cleanup, err := p.fetch(ctx, videoURL, "video-*.mp4")
	if err != nil {
		return production.Publication{}, err
	}
	defer cleanup()
	file, err := os.Open(path)
	if err != nil {
		return production.Publication{}, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       truncate(meta.Title, 100),
			Description: truncate(meta.Description, 5000),
			Tags:        meta.Tags,
			CategoryId:  p.cfg.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           privacy(meta.PrivacyStatus),
			SelfDeclaredMadeForKids: false,
		},
	}
	p.logger.Info("uploading video",
		logging.String(logging.FieldEventType, "upload_start"),
		logging.String("title", video.Snippet.Title),
		logging.String("privacy", video.Status.PrivacyStatus),
	)
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx).Do()
	if err != nil {
		return production.Publication{}, classify("upload", err)
	}
	if uploaded.Id == "" {
		return production.Publication{}, services.Wrap(services.ErrInvalidResponse, "youtube", "upload", "no video id returned", nil)
	}

	if meta.ThumbnailURL != "" {
		if err := p.setThumbnail(ctx, svc, uploaded.Id, meta.ThumbnailURL); err != nil {
			logging.WarnWithContext(p.logger, "thumbnail upload failed", "thumbnail_failed",
				logging.String("video_id", uploaded.Id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set the thumbnail manually in YouTube Studio"),
			)
		}
	}
	return production.Publication{
		VideoID:     uploaded.Id,
		URL:         watchURL + uploaded.Id,
		PublishedAt: time.Now().UTC(),
	}, nil
}

func (p *Publisher) setThumbnail(ctx context.Context, svc *yt.Service, videoID, thumbURL string) error {
	path, cleanup, err := p.fetch(ctx, thumbURL, "thumb-*")
	if err != nil {
		return err
	}
	defer cleanup()
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer file.Close()
	if _, err := svc.Thumbnails.Set(videoID).Media(file).Context(ctx).Do(); err != nil {
		return classify("thumbnail", err)
	}
	return nil
}

// fetch resolves raw to a local file, downloading remote URLs into TempDir.
func (p *Publisher) fetch(ctx context.Context, raw, pattern string) (string, func(), error) {
	noop := func() {}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", noop, services.Wrap(services.ErrValidation, "youtube", "fetch", "invalid url", err)
	}
	if parsed.Scheme == "file" || parsed.Scheme == "" {
		return parsed.Path, noop, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", noop, fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.download.Do(req)
	if err != nil {
		return "", noop, services.RequestError("youtube", "download", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", noop, services.StatusError("youtube", "download", resp)
	}

	tmp, err := os.CreateTemp(p.cfg.TempDir, pattern)
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, services.Wrap(services.ErrTransient, "youtube", "download", "copy body", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "youtube", op, "deadline exceeded", err)
		}
		return services.Wrap(services.ErrTransient, "youtube", op, "request failed", err)
	}
	msg := fmt.Sprintf("http %d", apiErr.Code)
	switch {
	case apiErr.Code == http.StatusTooManyRequests || quotaExceeded(apiErr):
		return services.Wrap(services.ErrRateLimited, "youtube", op, msg+": quota exceeded", err)
	case apiErr.Code >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "youtube", op, msg, err)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "youtube", op, msg+": check the oauth credentials", err)
	default:
		return services.Wrap(services.ErrTerminal, "youtube", op, msg, err)
	}
}

func quotaExceeded(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "quotaExceeded", "uploadLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return false
}

func privacy(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "public":
		return "public"
	case "unlisted":
		return "unlisted"
	default:
		return "private"
	}
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
