// Package batch runs per-item work on a bounded worker pool and records every
// item's result as a tagged outcome, so one bad input never fails the batch.
package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of processing a single item: a value on success or
// the reason it was skipped.
type Outcome[T any] struct {
	ID    string
	Value T
	Err   error
}

// OK reports whether the item succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Func processes one item.
type Func[T any] func(ctx context.Context, id string) (T, error)

// Run applies fn to every id using at most workers goroutines (NumCPU when
// workers <= 0). Outcomes are returned in the order of ids; each worker writes
// only its own slot. Once ctx is done, unscheduled items are recorded with the
// context error. The returned error is non-nil only when ctx was cancelled.
func Run[T any](ctx context.Context, ids []string, workers int, fn Func[T]) ([]Outcome[T], error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]Outcome[T], len(ids))
	g := &errgroup.Group{}
	g.SetLimit(workers)
	for i, id := range ids {
		out[i].ID = id
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			v, err := fn(ctx, id)
			out[i].Value, out[i].Err = v, err
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}

// Failures returns the outcomes that carry an error.
func Failures[T any](outcomes []Outcome[T]) []Outcome[T] {
	var failed []Outcome[T]
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded gathers successful values keyed by item id.
func Succeeded[T any](outcomes []Outcome[T]) map[string]T {
	m := make(map[string]T, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil {
			m[o.ID] = o.Value
		}
	}
	return m
}

// Skip is a type-erased failed outcome used in reports.
type Skip struct {
	ID  string
	Err error
}

// Skips converts failed outcomes into report entries.
func Skips[T any](outcomes []Outcome[T]) []Skip {
	var skips []Skip
	for _, o := range outcomes {
		if o.Err != nil {
			skips = append(skips, Skip{ID: o.ID, Err: o.Err})
		}
	}
	return skips
}
