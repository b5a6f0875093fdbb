// Package concurrent bounds parallel work: a limiter for shared upstream
// calls and an order-preserving parallel map.
package concurrent

import (
	"context"
	"sync"
)

// Limiter caps how many functions run at once.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter allows up to max concurrent calls. A non-positive max disables
// the limit and NewLimiter returns nil; a nil *Limiter runs everything.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		return nil
	}
	return &Limiter{sem: make(chan struct{}, max)}
}

// Do runs fn once a slot is free, or returns ctx.Err() if ctx ends first.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if l == nil {
		return fn()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
		return fn()
	}
}

// Map applies fn to every item with at most maxConcurrency goroutines and
// returns the results in input order. Items not started before ctx ends are
// left as the zero value and ctx.Err() is returned.
func Map[T, R any](ctx context.Context, items []T, maxConcurrency int, fn func(T) R) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrency)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return results, err
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return results, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int, val T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = fn(val)
		}(i, item)
	}
	wg.Wait()
	return results, nil
}
