package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	opSetGenerating = "start generating"
	opSetGenerated  = "store generated"
	opSetFailed     = "fail"
	opApprove       = "approve"
	opEdit          = "edit"
	opRetry         = "retry"
	opRevoke        = "revoke approval of"
)

// interruptedReason marks assets that were generating when the ledger was
// persisted; nothing can complete that generation after a restart.
const interruptedReason = "generation interrupted"

type entry struct {
	mu    sync.Mutex
	asset Asset
}

// Ledger holds the state of every asset kind for one production.
// A Ledger must not be copied after first use.
type Ledger struct {
	entries [kindCount]entry
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a ledger with every kind pending.
func New(opts ...Option) *Ledger {
	l := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	for k := range kindCount {
		l.entries[k].asset = pendingAsset(k)
	}
	return l
}

func pendingAsset(kind Kind) Asset {
	return Asset{ID: uuid.NewString(), Kind: kind, Status: StatusPending}
}

// Get returns a copy of the asset for kind. Unknown kinds yield a pending
// placeholder.
func (l *Ledger) Get(kind Kind) Asset {
	if !kind.Valid() {
		return Asset{Kind: kind, Status: StatusPending}
	}
	e := &l.entries[kind]
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyAsset(e.asset)
}

// SetGenerating marks kind as generating. Approved assets must be edited or
// revoked first; a kind that is already generating is rejected, not queued.
func (l *Ledger) SetGenerating(kind Kind) (Asset, error) {
	return l.mutate(kind, func(a *Asset) error {
		switch a.Status {
		case StatusPending, StatusGenerated, StatusFailed:
		default:
			return transitionError(kind, opSetGenerating, a.Status)
		}
		a.Status = StatusGenerating
		a.FailureReason = ""
		a.Attempts++
		return nil
	})
}

// SetGenerated stores content and marks the asset generated.
func (l *Ledger) SetGenerated(kind Kind, content Content) (Asset, error) {
	if err := checkContent(kind, content); err != nil {
		return Asset{}, err
	}
	return l.mutate(kind, func(a *Asset) error {
		switch a.Status {
		case StatusGenerating, StatusGenerated, StatusFailed:
		default:
			return transitionError(kind, opSetGenerated, a.Status)
		}
		now := l.now().UTC()
		a.Status = StatusGenerated
		a.Content = cloneContent(content)
		a.GeneratedAt = &now
		a.ApprovedAt = nil
		a.FailureReason = ""
		return nil
	})
}

// SetFailed records a failed generation. Previously generated content is kept.
func (l *Ledger) SetFailed(kind Kind, reason string) (Asset, error) {
	return l.mutate(kind, func(a *Asset) error {
		if a.Status != StatusGenerating {
			return transitionError(kind, opSetFailed, a.Status)
		}
		a.Status = StatusFailed
		a.FailureReason = reason
		return nil
	})
}

// Approve marks a generated asset approved.
func (l *Ledger) Approve(kind Kind) (Asset, error) {
	return l.mutate(kind, func(a *Asset) error {
		if a.Status != StatusGenerated {
			return transitionError(kind, opApprove, a.Status)
		}
		now := l.now().UTC()
		a.Status = StatusApproved
		a.ApprovedAt = &now
		return nil
	})
}

// EditContent replaces the content of a generated or approved asset. An
// approved asset drops back to generated and must be approved again.
func (l *Ledger) EditContent(kind Kind, content Content) (Asset, error) {
	if err := checkContent(kind, content); err != nil {
		return Asset{}, err
	}
	return l.mutate(kind, func(a *Asset) error {
		switch a.Status {
		case StatusGenerated, StatusApproved:
		default:
			return transitionError(kind, opEdit, a.Status)
		}
		a.Status = StatusGenerated
		a.Content = cloneContent(content)
		a.ApprovedAt = nil
		return nil
	})
}

// Retry moves a failed asset back to pending.
func (l *Ledger) Retry(kind Kind) (Asset, error) {
	return l.mutate(kind, func(a *Asset) error {
		if a.Status != StatusFailed {
			return transitionError(kind, opRetry, a.Status)
		}
		a.Status = StatusPending
		return nil
	})
}

// Revoke withdraws an approval without touching content.
func (l *Ledger) Revoke(kind Kind) (Asset, error) {
	return l.mutate(kind, func(a *Asset) error {
		if a.Status != StatusApproved {
			return transitionError(kind, opRevoke, a.Status)
		}
		a.Status = StatusGenerated
		a.ApprovedAt = nil
		return nil
	})
}

// AllApproved reports whether every kind is approved.
func (l *Ledger) AllApproved() bool {
	for k := range kindCount {
		if l.status(k) != StatusApproved {
			return false
		}
	}
	return true
}

// Unapproved returns the assets that are not yet approved, in kind order.
func (l *Ledger) Unapproved() []Asset {
	var out []Asset
	for k := range kindCount {
		if asset := l.Get(k); asset.Status != StatusApproved {
			out = append(out, asset)
		}
	}
	return out
}

// Snapshot returns copies of every asset in kind order.
func (l *Ledger) Snapshot() []Asset {
	out := make([]Asset, 0, kindCount)
	for k := range kindCount {
		out = append(out, l.Get(k))
	}
	return out
}

// Restore replaces ledger state with a snapshot. Kinds absent from the
// snapshot are reset to pending. Assets persisted while generating are
// restored as failed.
func (l *Ledger) Restore(assets []Asset) error {
	var restored [kindCount]*Asset
	for i := range assets {
		asset := assets[i]
		if !asset.Kind.Valid() {
			return fmt.Errorf("restore ledger: %w: %d", ErrUnknownKind, int(asset.Kind))
		}
		if restored[asset.Kind] != nil {
			return fmt.Errorf("restore ledger: %w: %s", errDuplicateRestore, asset.Kind)
		}
		if asset.Content != nil && asset.Content.Kind() != asset.Kind {
			return fmt.Errorf("restore ledger: %s: %w", asset.Kind, ErrContentMismatch)
		}
		if asset.Status == StatusGenerating {
			asset.Status = StatusFailed
			asset.FailureReason = interruptedReason
		}
		if asset.ID == "" {
			asset.ID = uuid.NewString()
		}
		restored[asset.Kind] = &asset
	}
	for k := range kindCount {
		next := pendingAsset(k)
		if restored[k] != nil {
			next = copyAsset(*restored[k])
		}
		e := &l.entries[k]
		e.mu.Lock()
		e.asset = next
		e.mu.Unlock()
	}
	return nil
}

func (l *Ledger) status(kind Kind) Status {
	e := &l.entries[kind]
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asset.Status
}

// mutate applies fn to the asset under its kind lock. fn must not block.
func (l *Ledger) mutate(kind Kind, fn func(*Asset) error) (Asset, error) {
	if !kind.Valid() {
		return Asset{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	e := &l.entries[kind]
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.asset
	if err := fn(&next); err != nil {
		return Asset{}, err
	}
	e.asset = next
	return copyAsset(next), nil
}

func checkContent(kind Kind, content Content) error {
	if content == nil {
		return fmt.Errorf("ledger: %s: %w", kind, errMissingContent)
	}
	if content.Kind() != kind {
		return fmt.Errorf("ledger: %s given %s content: %w", kind, content.Kind(), ErrContentMismatch)
	}
	if err := content.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

func copyAsset(a Asset) Asset {
	if a.Content != nil {
		a.Content = cloneContent(a.Content)
	}
	if a.GeneratedAt != nil {
		t := *a.GeneratedAt
		a.GeneratedAt = &t
	}
	if a.ApprovedAt != nil {
		t := *a.ApprovedAt
		a.ApprovedAt = &t
	}
	return a
}
