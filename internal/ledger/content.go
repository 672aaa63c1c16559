package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Content is the type-specific payload of an asset. The set of
// implementations is closed: one variant per Kind.
type Content interface {
	Kind() Kind
	// Validate reports whether the payload is complete enough to store.
	Validate() error
	sealed()
}

// ScriptSection is one narrated block of the script; each becomes a scene.
type ScriptSection struct {
	Heading         string  `json:"heading"`
	Narration       string  `json:"narration"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type ScriptContent struct {
	Title    string          `json:"title"`
	Sections []ScriptSection `json:"sections"`
}

// SoundtrackContent points at the narration audio. AudioURL may be a
// file:// URL when the audio was synthesized locally.
type SoundtrackContent struct {
	AudioURL        string  `json:"audio_url"`
	Voice           string  `json:"voice,omitempty"`
	Mood            string  `json:"mood,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type DescriptionContent struct {
	Text string `json:"text"`
}

type TagsContent struct {
	Tags []string `json:"tags"`
}

type TitleOption struct {
	Title           string `json:"title"`
	ThumbnailPrompt string `json:"thumbnail_prompt,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
}

// TitlesAndThumbsContent holds candidate titles; Selected indexes Options.
type TitlesAndThumbsContent struct {
	Options  []TitleOption `json:"options"`
	Selected int           `json:"selected"`
}

func (ScriptContent) Kind() Kind          { return KindScript }
func (SoundtrackContent) Kind() Kind      { return KindSoundtrack }
func (DescriptionContent) Kind() Kind     { return KindDescription }
func (TagsContent) Kind() Kind            { return KindTags }
func (TitlesAndThumbsContent) Kind() Kind { return KindTitlesAndThumbs }

func (ScriptContent) sealed()          {}
func (SoundtrackContent) sealed()      {}
func (DescriptionContent) sealed()     {}
func (TagsContent) sealed()            {}
func (TitlesAndThumbsContent) sealed() {}

func (c ScriptContent) Validate() error {
	if len(c.Sections) == 0 {
		return invalidContent(KindScript, "no sections")
	}
	for i, section := range c.Sections {
		if strings.TrimSpace(section.Narration) == "" {
			return invalidContent(KindScript, fmt.Sprintf("section %d has no narration", i+1))
		}
		if section.DurationSeconds < 0 {
			return invalidContent(KindScript, fmt.Sprintf("section %d has negative duration", i+1))
		}
	}
	return nil
}

// Narration joins every section's narration into one text.
func (c ScriptContent) Narration() string {
	parts := make([]string, 0, len(c.Sections))
	for _, section := range c.Sections {
		if text := strings.TrimSpace(section.Narration); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// TotalDuration sums the per-section durations.
func (c ScriptContent) TotalDuration() float64 {
	var total float64
	for _, section := range c.Sections {
		total += section.DurationSeconds
	}
	return total
}

func (c SoundtrackContent) Validate() error {
	if strings.TrimSpace(c.AudioURL) == "" {
		return invalidContent(KindSoundtrack, "audio url is empty")
	}
	if c.DurationSeconds < 0 {
		return invalidContent(KindSoundtrack, "negative duration")
	}
	return nil
}

func (c DescriptionContent) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return invalidContent(KindDescription, "text is empty")
	}
	return nil
}

func (c TagsContent) Validate() error {
	if len(c.Tags) == 0 {
		return invalidContent(KindTags, "no tags")
	}
	if slices.ContainsFunc(c.Tags, func(tag string) bool { return strings.TrimSpace(tag) == "" }) {
		return invalidContent(KindTags, "blank tag")
	}
	return nil
}

func (c TitlesAndThumbsContent) Validate() error {
	if len(c.Options) == 0 {
		return invalidContent(KindTitlesAndThumbs, "no title options")
	}
	if c.Selected < 0 || c.Selected >= len(c.Options) {
		return invalidContent(KindTitlesAndThumbs, fmt.Sprintf("selected option %d out of range", c.Selected))
	}
	for i, option := range c.Options {
		if strings.TrimSpace(option.Title) == "" {
			return invalidContent(KindTitlesAndThumbs, fmt.Sprintf("option %d has no title", i+1))
		}
	}
	return nil
}

// SelectedTitle returns the chosen option's title.
func (c TitlesAndThumbsContent) SelectedTitle() string {
	if c.Selected < 0 || c.Selected >= len(c.Options) {
		return ""
	}
	return c.Options[c.Selected].Title
}

func invalidContent(kind Kind, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidContent, kind, detail)
}

// cloneContent returns a copy that shares no slices with c.
func cloneContent(c Content) Content {
	switch v := c.(type) {
	case ScriptContent:
		v.Sections = slices.Clone(v.Sections)
		return v
	case TagsContent:
		v.Tags = slices.Clone(v.Tags)
		return v
	case TitlesAndThumbsContent:
		v.Options = slices.Clone(v.Options)
		return v
	default:
		return c
	}
}

type contentEnvelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalContent encodes content inside a {kind, payload} envelope.
func MarshalContent(c Content) ([]byte, error) {
	if c == nil {
		return nil, errors.New("marshal content: nil content")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s content: %w", c.Kind(), err)
	}
	return json.Marshal(contentEnvelope{Kind: c.Kind(), Payload: payload})
}

// UnmarshalContent decodes an envelope produced by MarshalContent.
func UnmarshalContent(data []byte) (Content, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode content envelope: %w", err)
	}
	return DecodeContent(env.Kind, env.Payload)
}

// DecodeContent decodes a bare payload for the given kind.
func DecodeContent(kind Kind, payload []byte) (Content, error) {
	switch kind {
	case KindScript:
		return decodeAs[ScriptContent](kind, payload)
	case KindSoundtrack:
		return decodeAs[SoundtrackContent](kind, payload)
	case KindDescription:
		return decodeAs[DescriptionContent](kind, payload)
	case KindTags:
		return decodeAs[TagsContent](kind, payload)
	case KindTitlesAndThumbs:
		return decodeAs[TitlesAndThumbsContent](kind, payload)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

func decodeAs[T Content](kind Kind, payload []byte) (Content, error) {
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", kind, err)
	}
	return value, nil
}
