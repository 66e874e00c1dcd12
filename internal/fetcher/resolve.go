// Package fetcher resolves lists of resource locators into payloads.
//
// Resolve deduplicates its input, serves hits from an optional cache and
// downloads the misses concurrently under a single deadline per call.
package fetcher

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cryguy/renderworker/internal/core"
)

// DefaultTimeout bounds a batch when Options.Timeout is not set.
const DefaultTimeout = 5 * time.Second

// Options is the fetch policy for one Resolve call.
type Options struct {
	// Timeout is shared by every download in the batch.
	Timeout time.Duration
	// Fetch retrieves one locator. Nil selects the package default HTTP
	// fetcher.
	Fetch core.FetchFunc
	// ThrowOnError fails the whole call when any locator fails. When false,
	// failed locators are omitted from the result.
	ThrowOnError bool
	// Cache is consulted before fetching and filled after each successful
	// download. Optional.
	Cache core.Cache
}

// DefaultOptions returns the default policy: 5s timeout, HTTP fetch,
// fail on any error, no cache.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, ThrowOnError: true}
}

// OptionsFromConfig builds a policy from worker configuration.
func OptionsFromConfig(cfg core.WorkerConfig, fetch core.FetchFunc, cache core.Cache) Options {
	return Options{
		Timeout:      cfg.FetchTimeout(),
		Fetch:        fetch,
		ThrowOnError: cfg.ThrowOnError,
		Cache:        cache,
	}
}

var defaultFetch core.FetchFunc = NewHTTPFetcher(core.DefaultConfig()).Fetch

// Resolve returns one Resource per unique locator, in first-occurrence
// order. Cache hits are returned as stored. Misses are fetched in parallel;
// all of them share one deadline that starts when the first miss is
// dispatched.
func Resolve(ctx context.Context, locators []string, opts Options) ([]core.Resource, error) {
	if len(locators) == 0 {
		return []core.Resource{}, nil
	}

	unique := dedupe(locators)
	payloads := make([][]byte, len(unique))
	resolved := make([]bool, len(unique))

	var misses []int
	for i, loc := range unique {
		if opts.Cache != nil {
			if data, ok := opts.Cache.Get(loc); ok {
				payloads[i] = data
				resolved[i] = true
				continue
			}
		}
		misses = append(misses, i)
	}

	if len(misses) > 0 {
		if err := fetchMisses(ctx, unique, misses, payloads, resolved, opts); err != nil {
			return nil, err
		}
	}

	out := make([]core.Resource, 0, len(unique))
	for i, loc := range unique {
		if resolved[i] {
			out = append(out, core.Resource{Src: loc, Data: payloads[i]})
		}
	}
	return out, nil
}

func fetchMisses(ctx context.Context, unique []string, misses []int, payloads [][]byte, resolved []bool, opts Options) error {
	fetch := opts.Fetch
	if fetch == nil {
		fetch = defaultFetch
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	g, gctx := errgroup.WithContext(batchCtx)

	for _, i := range misses {
		loc := unique[i]
		g.Go(func() error {
			data, err := fetchOne(gctx, batchCtx, fetch, loc)
			if err != nil {
				if opts.ThrowOnError {
					return err
				}
				core.Logger().Warn("resource fetch failed", "locator", loc, "error", err)
				return nil
			}
			payloads[i] = data
			resolved[i] = true
			if opts.Cache != nil {
				opts.Cache.Set(loc, data)
			}
			return nil
		})
	}
	return g.Wait()
}

func fetchOne(ctx, batchCtx context.Context, fetch core.FetchFunc, loc string) ([]byte, error) {
	resp, err := fetch(ctx, loc)
	if err != nil {
		return nil, classify(batchCtx, loc, err)
	}
	if resp == nil || resp.Body == nil {
		return nil, &FetchError{Locator: loc, Err: ErrNoResponse}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Locator: loc, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(batchCtx, loc, err)
	}
	return data, nil
}

func classify(batchCtx context.Context, loc string, err error) error {
	if errors.Is(batchCtx.Err(), context.DeadlineExceeded) {
		return &FetchError{Locator: loc, Err: ErrTimeout}
	}
	return &FetchError{Locator: loc, Err: err}
}

func dedupe(locators []string) []string {
	seen := make(map[string]struct{}, len(locators))
	out := make([]string, 0, len(locators))
	for _, loc := range locators {
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}
