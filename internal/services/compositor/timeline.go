package compositor

import (
	"strings"

	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

const (
	defaultSceneSeconds = 5.0
	titleSeconds        = 3.0
)

type edit struct {
	Timeline timeline `json:"timeline"`
	Output   output   `json:"output"`
}

type timeline struct {
	Background string      `json:"background,omitempty"`
	Soundtrack *soundtrack `json:"soundtrack,omitempty"`
	Tracks     []track     `json:"tracks"`
}

type soundtrack struct {
	Src    string `json:"src"`
	Effect string `json:"effect,omitempty"`
}

type track struct {
	Clips []clip `json:"clips"`
}

type clip struct {
	Asset  asset   `json:"asset"`
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
	Fit    string  `json:"fit,omitempty"`
	Effect string  `json:"effect,omitempty"`
}

type asset struct {
	Type  string `json:"type"`
	Src   string `json:"src,omitempty"`
	Text  string `json:"text,omitempty"`
	Style string `json:"style,omitempty"`
}

type output struct {
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
}

// buildEdit lays scenes end to end on one track in storyboard order, with
// an optional title overlay on top. Track order is top-most first.
func buildEdit(bundle render.Bundle, audioURL, format, resolution string) edit {
	clips := make([]clip, 0, len(bundle.Scenes))
	start := 0.0
	for _, scene := range bundle.Scenes {
		length := scene.DurationSeconds
		if length <= 0 {
			length = defaultSceneSeconds
		}
		clips = append(clips, sceneClip(scene, start, length))
		start += length
	}

	tracks := make([]track, 0, 2)
	if title := strings.TrimSpace(bundle.Title); title != "" && len(clips) > 0 {
		tracks = append(tracks, track{Clips: []clip{{
			Asset:  asset{Type: "title", Text: title, Style: "minimal"},
			Start:  0,
			Length: min(titleSeconds, start),
		}}})
	}
	tracks = append(tracks, track{Clips: clips})

	out := edit{
		Timeline: timeline{Background: "#000000", Tracks: tracks},
		Output:   output{Format: format, Resolution: resolution},
	}
	if audioURL != "" {
		out.Timeline.Soundtrack = &soundtrack{Src: audioURL, Effect: "fadeOut"}
	}
	return out
}

func sceneClip(scene storyboard.Scene, start, length float64) clip {
	c := clip{Start: start, Length: length, Fit: "cover"}
	if scene.Media == nil {
		return c
	}
	c.Asset = asset{Type: string(scene.Media.Type), Src: scene.Media.URL}
	if scene.Media.Type == storyboard.MediaImage {
		// Slow zoom keeps stills from looking frozen.
		c.Effect = "zoomIn"
	}
	return c
}
