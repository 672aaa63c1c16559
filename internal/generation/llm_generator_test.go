package generation_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/generation"
	"reelsmith/internal/ledger"
)

// stubText answers structured completions with canned JSON per schema name.
type stubText struct {
	replies map[string]string
	calls   []string
	prompts []string
}

func (s *stubText) CompleteStructured(_ context.Context, name, system, user string, target any) error {
	s.calls = append(s.calls, name)
	s.prompts = append(s.prompts, system+"\n---\n"+user)
	return json.Unmarshal([]byte(s.replies[name]), target)
}

type stubSpeech struct {
	text  string
	voice string
}

func (s *stubSpeech) Speak(_ context.Context, text, voice string) ([]byte, error) {
	s.text = text
	s.voice = voice
	return []byte("ID3-audio"), nil
}

func TestLLMGeneratorScript(t *testing.T) {
	text := &stubText{replies: map[string]string{
		"video_script": `{"title":" Tides ","sections":[{"heading":"Moon","narration":"The moon pulls the sea toward it every day.","duration_seconds":0},{"heading":"Empty","narration":"  ","duration_seconds":3}]}`,
	}}
	gen := generation.NewLLMGenerator(text, nil, generation.LLMOptions{})
	content, err := gen.Generate(context.Background(), ledger.KindScript, generation.Context{
		Theme:        "ocean tides",
		Research:     "The moon drives tides.",
		Instructions: "keep it short",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := content.(ledger.ScriptContent)
	if got.Title != "Tides" || len(got.Sections) != 1 {
		t.Fatalf("unexpected script %+v", got)
	}
	if got.Sections[0].DurationSeconds <= 0 {
		t.Fatal("expected estimated duration for zero-length section")
	}
	prompt := text.prompts[0]
	for _, want := range []string{"ocean tides", "The moon drives tides.", "keep it short"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestLLMGeneratorDerivedKinds(t *testing.T) {
	text := &stubText{replies: map[string]string{
		"video_tags":   `{"tags":["#Tides","tides","Moon ",""]}`,
		"video_titles": `{"options":[{"title":"Why tides happen","thumbnail_prompt":"moon over sea"},{"title":"The moon's pull","thumbnail_prompt":"glowing moon"}],"recommended":1}`,
	}}
	gen := generation.NewLLMGenerator(text, nil, generation.LLMOptions{})
	gctx := generation.Context{Theme: "tides", Script: script()}

	tags, err := gen.Generate(context.Background(), ledger.KindTags, gctx)
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if got := tags.(ledger.TagsContent).Tags; len(got) != 2 || got[0] != "tides" || got[1] != "moon" {
		t.Fatalf("unexpected tags %v", got)
	}

	titles, err := gen.Generate(context.Background(), ledger.KindTitlesAndThumbs, gctx)
	if err != nil {
		t.Fatalf("titles: %v", err)
	}
	if got := titles.(ledger.TitlesAndThumbsContent).SelectedTitle(); got != "The moon's pull" {
		t.Fatalf("unexpected selected title %q", got)
	}
	if !strings.Contains(text.prompts[0], "Water bulges on both sides.") {
		t.Fatalf("derived prompt should include the script:\n%s", text.prompts[0])
	}
}

func TestLLMGeneratorSoundtrackWritesAudio(t *testing.T) {
	speech := &stubSpeech{}
	dir := t.TempDir()
	gen := generation.NewLLMGenerator(nil, speech, generation.LLMOptions{AudioDir: dir, Voice: "nova"})
	content, err := gen.Generate(context.Background(), ledger.KindSoundtrack, generation.Context{
		Script:       script(),
		Instructions: "use the onyx voice please",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	track := content.(ledger.SoundtrackContent)
	if speech.voice != "onyx" || track.Voice != "onyx" {
		t.Fatalf("expected requested voice, got %q / %q", speech.voice, track.Voice)
	}
	if !strings.Contains(speech.text, "The moon pulls the oceans.") {
		t.Fatalf("narration not sent: %q", speech.text)
	}
	path := strings.TrimPrefix(track.AudioURL, "file://")
	if filepath.Dir(path) != dir {
		t.Fatalf("audio written outside %s: %s", dir, path)
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil || string(data) != "ID3-audio" {
		t.Fatalf("audio file not written: %v", err)
	}
	if track.DurationSeconds <= 0 {
		t.Fatal("expected estimated duration")
	}
}

func TestLLMGeneratorResearch(t *testing.T) {
	text := &stubText{replies: map[string]string{
		"theme_research": `{"summary":"Tides are driven by the moon.","key_points":["gravity"," "],"angles":["myths"]}`,
	}}
	gen := generation.NewLLMGenerator(text, nil, generation.LLMOptions{})
	research, err := gen.Research(context.Background(), "tides", "")
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if research.Summary == "" || len(research.KeyPoints) != 1 || len(research.Angles) != 1 {
		t.Fatalf("unexpected research %+v", research)
	}
}

func TestLoadPromptsOverridesTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("description:\n  system: \"Be brief about {{.Theme}}.\"\n"), 0o644); err != nil {
		t.Fatalf("write prompts: %v", err)
	}
	catalog, err := generation.LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	system, user, err := catalog.Render("description", generation.PromptData{Theme: "tides", ScriptText: "body"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if system != "Be brief about tides." {
		t.Fatalf("override not applied: %q", system)
	}
	if !strings.Contains(user, "body") {
		t.Fatalf("default user template should remain: %q", user)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("thumbnail:\n  system: x\n"), 0o644); err != nil {
		t.Fatalf("write prompts: %v", err)
	}
	if _, err := generation.LoadPrompts(bad); err == nil {
		t.Fatal("expected unknown task error")
	}
}
