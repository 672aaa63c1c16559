package storyboard

import (
	"fmt"
	"strings"
)

// Source names a stock media provider.
type Source string

const (
	SourcePexels  Source = "pexels"
	SourcePixabay Source = "pixabay"
)

// ParseSource normalizes a provider name.
func ParseSource(value string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(value))) {
	case SourcePexels:
		return SourcePexels, nil
	case SourcePixabay:
		return SourcePixabay, nil
	}
	return "", fmt.Errorf("%w: unknown media source %q", ErrInvalidMedia, value)
}

// MediaType distinguishes still images from video clips.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Media is one stock asset that can fill a scene.
type Media struct {
	ID              string    `json:"id"`
	Source          Source    `json:"source"`
	SourceID        string    `json:"source_id"`
	Type            MediaType `json:"type"`
	PreviewURL      string    `json:"preview_url,omitempty"`
	URL             string    `json:"url"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	Attribution     string    `json:"attribution,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
}

// Validate reports whether the media can be bound to a scene.
func (m Media) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("%w: media url is empty", ErrInvalidMedia)
	}
	switch m.Type {
	case MediaImage, MediaVideo:
	default:
		return fmt.Errorf("%w: unsupported media type %q", ErrInvalidMedia, m.Type)
	}
	return nil
}

// Scene is one narrated segment of the storyboard. Order is 0-based.
type Scene struct {
	ID              string  `json:"id"`
	Order           int     `json:"order"`
	Heading         string  `json:"heading,omitempty"`
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	Media           *Media  `json:"media,omitempty"`
}

// Bound reports whether the scene has media.
func (s Scene) Bound() bool {
	return s.Media != nil
}

// SuggestedQuery derives a default stock search query for the scene.
func (s Scene) SuggestedQuery() string {
	if heading := strings.TrimSpace(s.Heading); heading != "" {
		return heading
	}
	words := strings.Fields(s.Text)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

func (s Scene) clone() Scene {
	if s.Media != nil {
		media := *s.Media
		s.Media = &media
	}
	return s
}
