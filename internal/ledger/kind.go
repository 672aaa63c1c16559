package ledger

import (
	"fmt"
	"strings"
)

// Kind identifies one of the fixed asset types.
type Kind int

const (
	KindScript Kind = iota
	KindSoundtrack
	KindDescription
	KindTags
	KindTitlesAndThumbs

	kindCount
)

var kindNames = [kindCount]string{
	KindScript:          "script",
	KindSoundtrack:      "soundtrack",
	KindDescription:     "description",
	KindTags:            "tags",
	KindTitlesAndThumbs: "titles_and_thumbs",
}

// Kinds returns every asset kind in canonical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := range kindCount {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts user or persisted input into a Kind. Hyphens and
// spaces are accepted in place of underscores.
func ParseKind(value string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "titles", "thumbnails", "titles_and_thumbnails":
		return KindTitlesAndThumbs, nil
	}
	for k, name := range kindNames {
		if name == normalized {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(data []byte) error {
	parsed, err := ParseKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Status is the lifecycle position of one asset.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusGenerated  Status = "generated"
	StatusApproved   Status = "approved"
	StatusFailed     Status = "failed"
)

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusGenerated, StatusApproved, StatusFailed:
		return true
	}
	return false
}
