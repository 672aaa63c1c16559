package storyboard

import (
	"fmt"

	"reelsmith/internal/services"
)

var (
	ErrEmptyScript        = fmt.Errorf("%w: script has no sections", services.ErrValidation)
	ErrInvalidPermutation = fmt.Errorf("%w: scene order is not a permutation of the storyboard", services.ErrValidation)
	ErrInvalidMedia       = fmt.Errorf("%w: invalid media", services.ErrValidation)
	ErrInvalidDuration    = fmt.Errorf("%w: scene duration must not be negative", services.ErrValidation)
	ErrEmptyQuery         = fmt.Errorf("%w: search query is empty", services.ErrValidation)
	ErrSceneNotFound      = fmt.Errorf("scene %w", services.ErrNotFound)
)

var errSearchUnavailable = fmt.Errorf("%w: no media search provider configured", services.ErrConfiguration)
