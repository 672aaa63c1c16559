package generation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"reelsmith/internal/ledger"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// TaskResearch names the research prompt, which has no asset kind.
const TaskResearch = "research"

// Prompt is one pair of system and user templates.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type compiledPrompt struct {
	system *template.Template
	user   *template.Template
}

// PromptCatalog holds the compiled templates for every task.
type PromptCatalog struct {
	prompts map[string]compiledPrompt
}

// PromptData is the value templates are rendered with.
type PromptData struct {
	Kind         string
	Theme        string
	Research     string
	Script       *ledger.ScriptContent
	ScriptText   string
	Previous     string
	Instructions string
}

// DefaultPrompts returns the built-in catalog.
func DefaultPrompts() *PromptCatalog {
	catalog, err := parseCatalog(defaultPrompts, nil)
	if err != nil {
		panic(fmt.Sprintf("generation: built-in prompts: %v", err))
	}
	return catalog
}

// LoadPrompts returns the built-in catalog with any tasks defined in the YAML
// file at path replacing their defaults. An empty path yields the defaults.
func LoadPrompts(path string) (*PromptCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultPrompts(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %q: %w", path, err)
	}
	base := map[string]Prompt{}
	if err := yaml.Unmarshal(defaultPrompts, &base); err != nil {
		return nil, fmt.Errorf("parse built-in prompts: %w", err)
	}
	catalog, err := parseCatalog(data, base)
	if err != nil {
		return nil, fmt.Errorf("prompts %q: %w", path, err)
	}
	return catalog, nil
}

func parseCatalog(data []byte, base map[string]Prompt) (*PromptCatalog, error) {
	overrides := map[string]Prompt{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	merged := make(map[string]Prompt, len(base)+len(overrides))
	for task, prompt := range base {
		merged[task] = prompt
	}
	for task, prompt := range overrides {
		if !knownTask(task) {
			return nil, fmt.Errorf("unknown prompt task %q", task)
		}
		current := merged[task]
		if strings.TrimSpace(prompt.System) != "" {
			current.System = prompt.System
		}
		if strings.TrimSpace(prompt.User) != "" {
			current.User = prompt.User
		}
		merged[task] = current
	}

	catalog := &PromptCatalog{prompts: make(map[string]compiledPrompt, len(merged))}
	for task, prompt := range merged {
		system, err := template.New(task + ".system").Option("missingkey=error").Parse(prompt.System)
		if err != nil {
			return nil, fmt.Errorf("task %s system: %w", task, err)
		}
		user, err := template.New(task + ".user").Option("missingkey=error").Parse(prompt.User)
		if err != nil {
			return nil, fmt.Errorf("task %s user: %w", task, err)
		}
		catalog.prompts[task] = compiledPrompt{system: system, user: user}
	}
	return catalog, nil
}

func knownTask(task string) bool {
	if task == TaskResearch {
		return true
	}
	kind, err := ledger.ParseKind(task)
	return err == nil && kind != ledger.KindSoundtrack
}

// Render produces the system and user prompts for task.
func (c *PromptCatalog) Render(task string, data PromptData) (system, user string, err error) {
	prompt, ok := c.prompts[task]
	if !ok {
		return "", "", fmt.Errorf("no prompt for task %q", task)
	}
	var sb, ub strings.Builder
	if err := prompt.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s system prompt: %w", task, err)
	}
	if err := prompt.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("render %s user prompt: %w", task, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}

// Tasks lists the tasks the catalog can render.
func (c *PromptCatalog) Tasks() []string {
	tasks := make([]string, 0, len(c.prompts))
	for task := range c.prompts {
		tasks = append(tasks, task)
	}
	return tasks
}

func promptData(kind ledger.Kind, gctx Context) PromptData {
	data := PromptData{
		Kind:         kind.String(),
		Theme:        strings.TrimSpace(gctx.Theme),
		Research:     strings.TrimSpace(gctx.Research),
		Script:       gctx.Script,
		Instructions: strings.TrimSpace(gctx.Instructions),
	}
	if gctx.Script != nil {
		data.ScriptText = scriptText(*gctx.Script)
	}
	if gctx.Previous != nil {
		if encoded, err := json.MarshalIndent(gctx.Previous, "", "  "); err == nil {
			data.Previous = string(encoded)
		}
	}
	return data
}

func scriptText(script ledger.ScriptContent) string {
	var b strings.Builder
	if title := strings.TrimSpace(script.Title); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	for _, section := range script.Sections {
		if heading := strings.TrimSpace(section.Heading); heading != "" {
			b.WriteString("## ")
			b.WriteString(heading)
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(section.Narration))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
