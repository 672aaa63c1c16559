package storyboard

import (
	"fmt"
	"slices"
	"sync"
)

// Board is the ordered set of scenes for one production.
type Board struct {
	mu     sync.Mutex
	scenes []Scene
}

// NewBoard builds a board from scenes in the given order. Scene IDs must be
// unique and non-empty.
func NewBoard(scenes []Scene) (*Board, error) {
	b := &Board{}
	if err := b.Restore(scenes); err != nil {
		return nil, err
	}
	return b, nil
}

// Scenes returns ordered copies of every scene.
func (b *Board) Scenes() []Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneScenes(b.scenes)
}

// Scene returns a copy of one scene.
func (b *Board) Scene(id string) (Scene, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexLocked(id)
	if idx < 0 {
		return Scene{}, sceneNotFound(id)
	}
	return b.scenes[idx].clone(), nil
}

// Len returns the number of scenes.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scenes)
}

// TotalDuration sums scene durations.
func (b *Board) TotalDuration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total float64
	for _, scene := range b.scenes {
		total += scene.DurationSeconds
	}
	return total
}

// BindMedia attaches media to a scene, replacing any existing binding.
func (b *Board) BindMedia(sceneID string, media Media) (Scene, error) {
	if err := media.Validate(); err != nil {
		return Scene{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexLocked(sceneID)
	if idx < 0 {
		return Scene{}, sceneNotFound(sceneID)
	}
	bound := media
	b.scenes[idx].Media = &bound
	return b.scenes[idx].clone(), nil
}

// UnbindMedia clears a scene's media. Unbinding an empty scene is a no-op.
func (b *Board) UnbindMedia(sceneID string) (Scene, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexLocked(sceneID)
	if idx < 0 {
		return Scene{}, sceneNotFound(sceneID)
	}
	b.scenes[idx].Media = nil
	return b.scenes[idx].clone(), nil
}

// Reorder applies a new scene order. ids must name every scene exactly once;
// otherwise the board is left untouched.
func (b *Board) Reorder(ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(ids) != len(b.scenes) {
		return fmt.Errorf("%w: got %d ids for %d scenes", ErrInvalidPermutation, len(ids), len(b.scenes))
	}
	byID := make(map[string]Scene, len(b.scenes))
	for _, scene := range b.scenes {
		byID[scene.ID] = scene
	}
	next := make([]Scene, 0, len(ids))
	for _, id := range ids {
		scene, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated scene %q", ErrInvalidPermutation, id)
		}
		delete(byID, id)
		next = append(next, scene)
	}
	renumber(next)
	b.scenes = next
	return nil
}

// Coverage returns how many scenes have media out of the total.
func (b *Board) Coverage() (bound, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, scene := range b.scenes {
		if scene.Media != nil {
			bound++
		}
	}
	return bound, len(b.scenes)
}

// Complete reports whether every scene is bound.
func (b *Board) Complete() bool {
	bound, total := b.Coverage()
	return total > 0 && bound == total
}

// Unbound returns the scenes still missing media, in order.
func (b *Board) Unbound() []Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Scene
	for _, scene := range b.scenes {
		if scene.Media == nil {
			out = append(out, scene.clone())
		}
	}
	return out
}

// Snapshot returns the ordered scenes for persistence.
func (b *Board) Snapshot() []Scene {
	return b.Scenes()
}

// Restore replaces the board's scenes. Order values are renumbered from the
// slice order. Durations must be non-negative.
func (b *Board) Restore(scenes []Scene) error {
	seen := make(map[string]struct{}, len(scenes))
	for _, scene := range scenes {
		if scene.ID == "" {
			return fmt.Errorf("%w: scene without id", ErrInvalidPermutation)
		}
		if _, ok := seen[scene.ID]; ok {
			return fmt.Errorf("%w: duplicate scene %q", ErrInvalidPermutation, scene.ID)
		}
		if !(scene.DurationSeconds >= 0) {
			return fmt.Errorf("%w: scene %q has %v seconds", ErrInvalidDuration, scene.ID, scene.DurationSeconds)
		}
		seen[scene.ID] = struct{}{}
	}
	next := cloneScenes(scenes)
	renumber(next)
	b.mu.Lock()
	b.scenes = next
	b.mu.Unlock()
	return nil
}

func (b *Board) indexLocked(id string) int {
	return slices.IndexFunc(b.scenes, func(s Scene) bool { return s.ID == id })
}

func renumber(scenes []Scene) {
	for i := range scenes {
		scenes[i].Order = i
	}
}

func cloneScenes(scenes []Scene) []Scene {
	out := make([]Scene, len(scenes))
	for i, scene := range scenes {
		out[i] = scene.clone()
	}
	return out
}

func sceneNotFound(id string) error {
	return fmt.Errorf("storyboard: %q: %w", id, ErrSceneNotFound)
}
