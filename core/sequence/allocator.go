package sequence

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Strategy string

const (
	// StrategyCounter reserves numbers atomically on a persisted Counter.
	StrategyCounter Strategy = "counter"
	// StrategyScan reads the greatest identifier of the scope and adds one.
	// Two concurrent allocations in the same scope may return the same identifier.
	StrategyScan Strategy = "scan"
)

// ErrCounterNotFound is returned by a CounterStore for a key that was never seeded.
var ErrCounterNotFound = errors.New("sequence counter not found")

type (
	// Finder returns the greatest identifier starting with scope, or "" when there is none.
	Finder interface {
		LastIdentifier(ctx context.Context, scope string) (string, error)
	}

	FinderFunc func(ctx context.Context, scope string) (string, error)

	// Finders maps each Category to the record store holding its identifiers.
	Finders map[Category]Finder

	// Counter is the persisted state of one (category, scope) sequence.
	Counter struct {
		Key       string    `json:"key" bson:"_id"`
		Seq       int       `json:"seq" bson:"seq"`
		UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	}

	CounterStore interface {
		// SeedCounter creates key with seq, leaving an existing counter untouched.
		SeedCounter(ctx context.Context, key string, seq int) error
		// AdvanceCounter atomically moves key to (seq+1) % limit and returns the new seq.
		AdvanceCounter(ctx context.Context, key string, limit int) (int, error)
		// ResetCounters drops every counter, forcing a re-seed from the record stores.
		ResetCounters(ctx context.Context) error
	}

	Allocator interface {
		Allocate(ctx context.Context, cat Category) (string, error)
	}
)

func (fn FinderFunc) LastIdentifier(ctx context.Context, scope string) (string, error) {
	return fn(ctx, scope)
}

func (f Finders) lastIdentifier(ctx context.Context, cat Category, scope string) (string, error) {
	finder, ok := f[cat]
	if !ok {
		return "", errors.Errorf("no identifier finder for %q", cat)
	}
	last, err := finder.LastIdentifier(ctx, scope)
	if err != nil {
		return "", errors.Wrapf(err, "finding last %s identifier", cat)
	}
	return last, nil
}

// CounterKey identifies the Counter of cat in scope.
func CounterKey(cat Category, scope string) string {
	return string(cat) + ":" + scope
}

// NewAllocator returns the Allocator implementing strategy. Unknown strategies fall back to StrategyCounter.
// Year scopes follow the calendar of loc, UTC when nil.
func NewAllocator(strategy Strategy, finders Finders, store CounterStore, now func() time.Time, loc *time.Location) Allocator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	clock := func() time.Time { return now().In(loc) }
	if strategy == StrategyScan || store == nil {
		return &ScanAllocator{finders: finders, now: clock}
	}
	return &CounterAllocator{finders: finders, store: store, now: clock}
}

type ScanAllocator struct {
	finders Finders
	now     func() time.Time
}

var _ Allocator = (*ScanAllocator)(nil)

func (a *ScanAllocator) Allocate(ctx context.Context, cat Category) (string, error) {
	scheme, err := SchemeOf(cat)
	if err != nil {
		return "", err
	}
	scope := scheme.Scope(a.now())
	last, err := a.finders.lastIdentifier(ctx, cat, scope)
	if err != nil {
		return "", err
	}
	return Next(scope, last, scheme.Limit), nil
}

type CounterAllocator struct {
	finders Finders
	store   CounterStore
	now     func() time.Time
}

var _ Allocator = (*CounterAllocator)(nil)

func (a *CounterAllocator) Allocate(ctx context.Context, cat Category) (string, error) {
	scheme, err := SchemeOf(cat)
	if err != nil {
		return "", err
	}
	scope := scheme.Scope(a.now())
	key := CounterKey(cat, scope)

	seq, err := a.store.AdvanceCounter(ctx, key, scheme.Limit)
	if errors.Cause(err) == ErrCounterNotFound {
		// continue from the records written before the counter existed
		last, fErr := a.finders.lastIdentifier(ctx, cat, scope)
		if fErr != nil {
			return "", fErr
		}
		var start int
		if last != "" {
			start = Suffix(last)
		}
		if err = a.store.SeedCounter(ctx, key, start); err != nil {
			return "", errors.Wrapf(err, "seeding counter %s", key)
		}
		seq, err = a.store.AdvanceCounter(ctx, key, scheme.Limit)
	}
	if err != nil {
		return "", errors.Wrapf(err, "advancing counter %s", key)
	}
	return Format(scope, seq), nil
}
