package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/production"
	"reelsmith/internal/services"
)

// wordsPerSecond approximates narration pace for duration estimates.
const wordsPerSecond = 2.5

const maxTags = 15

// TextModel returns schema-constrained JSON completions.
type TextModel interface {
	CompleteStructured(ctx context.Context, name, systemPrompt, userPrompt string, target any) error
}

// SpeechModel synthesises narration audio.
type SpeechModel interface {
	Speak(ctx context.Context, text, voice string) ([]byte, error)
}

// LLMOptions configures an LLMGenerator.
type LLMOptions struct {
	Prompts *PromptCatalog
	// Voice is the default narration voice.
	Voice string
	// AudioDir receives synthesised soundtrack files.
	AudioDir string
	Logger   *slog.Logger
}

// LLMGenerator generates every asset kind and the research brief through a
// chat model and a speech model.
type LLMGenerator struct {
	text     TextModel
	speech   SpeechModel
	prompts  *PromptCatalog
	voice    string
	audioDir string
	logger   *slog.Logger
}

// NewLLMGenerator constructs an LLMGenerator. speech may be nil when
// soundtracks are not generated.
func NewLLMGenerator(text TextModel, speech SpeechModel, opts LLMOptions) *LLMGenerator {
	prompts := opts.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = "alloy"
	}
	return &LLMGenerator{
		text:     text,
		speech:   speech,
		prompts:  prompts,
		voice:    voice,
		audioDir: opts.AudioDir,
		logger:   logging.NewComponentLogger(opts.Logger, "llm-generator"),
	}
}

type sectionReply struct {
	Heading         string  `json:"heading" jsonschema:"description=Short visual heading used to search stock footage"`
	Narration       string  `json:"narration" jsonschema:"description=Spoken narration for the section"`
	DurationSeconds float64 `json:"duration_seconds" jsonschema:"description=Estimated narration length in seconds"`
}

type scriptReply struct {
	Title    string         `json:"title"`
	Sections []sectionReply `json:"sections"`
}

type descriptionReply struct {
	Text string `json:"text"`
}

type tagsReply struct {
	Tags []string `json:"tags"`
}

type titleReply struct {
	Title           string `json:"title"`
	ThumbnailPrompt string `json:"thumbnail_prompt"`
}

type titlesReply struct {
	Options     []titleReply `json:"options"`
	Recommended int          `json:"recommended"`
}

type researchReply struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Angles    []string `json:"angles"`
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, kind ledger.Kind, gctx Context) (ledger.Content, error) {
	if kind == ledger.KindSoundtrack {
		return g.soundtrack(ctx, gctx)
	}
	if g.text == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", kind.String(), "no text model configured", nil)
	}
	system, user, err := g.prompts.Render(kind.String(), promptData(kind, gctx))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", kind.String(), "render prompt", err)
	}

	switch kind {
	case ledger.KindScript:
		var reply scriptReply
		if err := g.text.CompleteStructured(ctx, "video_script", system, user, &reply); err != nil {
			return nil, err
		}
		return scriptFromReply(reply), nil
	case ledger.KindDescription:
		var reply descriptionReply
		if err := g.text.CompleteStructured(ctx, "video_description", system, user, &reply); err != nil {
			return nil, err
		}
		return ledger.DescriptionContent{Text: strings.TrimSpace(reply.Text)}, nil
	case ledger.KindTags:
		var reply tagsReply
		if err := g.text.CompleteStructured(ctx, "video_tags", system, user, &reply); err != nil {
			return nil, err
		}
		return ledger.TagsContent{Tags: normalizeTags(reply.Tags)}, nil
	case ledger.KindTitlesAndThumbs:
		var reply titlesReply
		if err := g.text.CompleteStructured(ctx, "video_titles", system, user, &reply); err != nil {
			return nil, err
		}
		return titlesFromReply(reply), nil
	}
	return nil, fmt.Errorf("generate: %w: %s", ledger.ErrUnknownKind, kind)
}

// Research gathers background material for theme.
func (g *LLMGenerator) Research(ctx context.Context, theme, instructions string) (production.Research, error) {
	if g.text == nil {
		return production.Research{}, services.Wrap(services.ErrConfiguration, "generation", TaskResearch, "no text model configured", nil)
	}
	system, user, err := g.prompts.Render(TaskResearch, PromptData{
		Theme:        strings.TrimSpace(theme),
		Instructions: strings.TrimSpace(instructions),
	})
	if err != nil {
		return production.Research{}, services.Wrap(services.ErrConfiguration, "generation", TaskResearch, "render prompt", err)
	}
	var reply researchReply
	if err := g.text.CompleteStructured(ctx, "theme_research", system, user, &reply); err != nil {
		return production.Research{}, err
	}
	research := production.Research{
		Summary:   strings.TrimSpace(reply.Summary),
		KeyPoints: compact(reply.KeyPoints),
		Angles:    compact(reply.Angles),
	}
	if research.Empty() {
		return production.Research{}, services.Wrap(services.ErrInvalidResponse, "generation", TaskResearch, "empty research", nil)
	}
	return research, nil
}

func (g *LLMGenerator) soundtrack(ctx context.Context, gctx Context) (ledger.Content, error) {
	if g.speech == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", "soundtrack", "no speech model configured", nil)
	}
	if gctx.Script == nil {
		return nil, fmt.Errorf("soundtrack: %w: script", ErrMissingDependency)
	}
	narration := gctx.Script.Narration()
	voice := g.voice
	mood := "narration"
	if prev, ok := gctx.Previous.(ledger.SoundtrackContent); ok {
		if strings.TrimSpace(prev.Voice) != "" {
			voice = prev.Voice
		}
		if strings.TrimSpace(prev.Mood) != "" {
			mood = prev.Mood
		}
	}
	if requested := voiceFromInstructions(gctx.Instructions); requested != "" {
		voice = requested
	}

	audio, err := g.speech.Speak(ctx, narration, voice)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrInvalidResponse, "generation", "soundtrack", "speech returned no audio", nil)
	}
	path, err := g.writeAudio(audio)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("soundtrack written",
		logging.String("path", path),
		logging.String("voice", voice),
		logging.Int("bytes", len(audio)),
	)
	return ledger.SoundtrackContent{
		AudioURL:        "file://" + filepath.ToSlash(path),
		Voice:           voice,
		Mood:            mood,
		DurationSeconds: estimateDuration(narration),
	}, nil
}

func (g *LLMGenerator) writeAudio(audio []byte) (string, error) {
	dir := g.audioDir
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "generation", "soundtrack", "create audio dir", err)
	}
	path := filepath.Join(dir, "soundtrack-"+uuid.NewString()+".mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "generation", "soundtrack", "write audio", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

var knownVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// voiceFromInstructions picks a voice when the instructions name one.
func voiceFromInstructions(instructions string) string {
	for _, word := range strings.FieldsFunc(strings.ToLower(instructions), func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		if slices.Contains(knownVoices, word) {
			return word
		}
	}
	return ""
}

func scriptFromReply(reply scriptReply) ledger.ScriptContent {
	script := ledger.ScriptContent{Title: strings.TrimSpace(reply.Title)}
	for _, section := range reply.Sections {
		narration := strings.TrimSpace(section.Narration)
		if narration == "" {
			continue
		}
		duration := section.DurationSeconds
		if duration <= 0 {
			duration = estimateDuration(narration)
		}
		script.Sections = append(script.Sections, ledger.ScriptSection{
			Heading:         strings.TrimSpace(section.Heading),
			Narration:       narration,
			DurationSeconds: duration,
		})
	}
	return script
}

func titlesFromReply(reply titlesReply) ledger.TitlesAndThumbsContent {
	var content ledger.TitlesAndThumbsContent
	selected := -1
	for i, option := range reply.Options {
		title := strings.TrimSpace(option.Title)
		if title == "" {
			continue
		}
		if i == reply.Recommended {
			selected = len(content.Options)
		}
		content.Options = append(content.Options, ledger.TitleOption{
			Title:           title,
			ThumbnailPrompt: strings.TrimSpace(option.ThumbnailPrompt),
		})
	}
	if selected < 0 {
		selected = 0
	}
	content.Selected = selected
	return content
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func estimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return float64(words) / wordsPerSecond
}
