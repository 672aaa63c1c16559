package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Asset is one typed piece of generated content and its lifecycle state.
type Asset struct {
	ID            string
	Kind          Kind
	Status        Status
	Content       Content
	GeneratedAt   *time.Time
	ApprovedAt    *time.Time
	FailureReason string
	Attempts      int
}

// HasContent reports whether the asset carries a payload.
func (a Asset) HasContent() bool {
	return a.Content != nil
}

type assetJSON struct {
	ID            string          `json:"id"`
	Kind          Kind            `json:"kind"`
	Status        Status          `json:"status"`
	Content       json.RawMessage `json:"content,omitempty"`
	GeneratedAt   *time.Time      `json:"generated_at,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Attempts      int             `json:"attempts,omitempty"`
}

func (a Asset) MarshalJSON() ([]byte, error) {
	out := assetJSON{
		ID:            a.ID,
		Kind:          a.Kind,
		Status:        a.Status,
		GeneratedAt:   a.GeneratedAt,
		ApprovedAt:    a.ApprovedAt,
		FailureReason: a.FailureReason,
		Attempts:      a.Attempts,
	}
	if a.Content != nil {
		raw, err := MarshalContent(a.Content)
		if err != nil {
			return nil, err
		}
		out.Content = raw
	}
	return json.Marshal(out)
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var in assetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if !in.Status.valid() {
		return fmt.Errorf("decode asset %s: unknown status %q", in.Kind, in.Status)
	}
	decoded := Asset{
		ID:            in.ID,
		Kind:          in.Kind,
		Status:        in.Status,
		GeneratedAt:   in.GeneratedAt,
		ApprovedAt:    in.ApprovedAt,
		FailureReason: in.FailureReason,
		Attempts:      in.Attempts,
	}
	if len(in.Content) > 0 && string(in.Content) != "null" {
		content, err := UnmarshalContent(in.Content)
		if err != nil {
			return err
		}
		if content.Kind() != in.Kind {
			return fmt.Errorf("decode asset %s: %w", in.Kind, ErrContentMismatch)
		}
		decoded.Content = content
	}
	*a = decoded
	return nil
}
