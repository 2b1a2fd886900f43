package mapview

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeblew999/plat-parking/internal/segment"
)

// FailureMessage is the user-visible notification for a failed load.
const FailureMessage = "Failed to load parking segments."

var (
	// ErrFetch is returned when the dataset cannot be retrieved.
	ErrFetch = errors.New("fetch dataset")
	// ErrTerminal is returned by Load on a handle whose load already failed.
	ErrTerminal = errors.New("map session failed")
	// ErrAlreadyLoaded is returned by Load on a handle that is loading or bound.
	ErrAlreadyLoaded = errors.New("map already loaded")
)

// Fetcher retrieves the raw dataset document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// Notifier shows a failure to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// LoadResult is the outcome of Load: a collection or an error, never both.
type LoadResult struct {
	Collection *segment.Collection
	Err        error
}

// OK reports whether the load succeeded.
func (r LoadResult) OK() bool {
	return r.Err == nil && r.Collection != nil
}

// Load fetches and parses the dataset once. Any fetch, parse or validation
// error fails the whole load.
func Load(ctx context.Context, f Fetcher) LoadResult {
	data, err := f.Fetch(ctx)
	if err != nil {
		return LoadResult{Err: fmt.Errorf("%w: %w", ErrFetch, err)}
	}
	c, err := segment.Decode(data)
	if err != nil {
		return LoadResult{Err: err}
	}
	return LoadResult{Collection: c}
}

// Load runs the one-shot load for this handle and binds the result. On any
// failure n is notified once and the handle becomes Failed.
func (h *Handle) Load(ctx context.Context, f Fetcher, n Notifier) error {
	h.mu.Lock()
	switch h.state {
	case Failed:
		h.mu.Unlock()
		return ErrTerminal
	case Loading, Bound:
		h.mu.Unlock()
		return ErrAlreadyLoaded
	}
	h.state = Loading
	h.mu.Unlock()

	res := Load(ctx, f)
	if res.Err == nil {
		res.Err = h.bind(res.Collection)
	}
	if res.Err != nil {
		h.mu.Lock()
		h.state = Failed
		h.err = res.Err
		h.mu.Unlock()

		h.logger.Error("dataset load failed", "error", res.Err)
		if n != nil {
			n.Notify(FailureMessage)
		}
		return res.Err
	}

	h.mu.Lock()
	h.state = Bound
	h.mu.Unlock()
	h.logger.Info("dataset bound",
		"features", res.Collection.Len(),
		"zones", len(h.Assignment()),
	)
	return nil
}
