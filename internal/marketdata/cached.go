package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options configures a CachedClient
type Options struct {
	CacheTTL      time.Duration
	NegativeTTL   time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	RetryInterval time.Duration
	// FetchTimeout bounds a shared upstream fetch, which outlives any single caller
	FetchTimeout time.Duration
	Shared       SharedCache
}

// CachedClient wraps an upstream Client with caching, request de-duplication,
// rate limiting and retries. Construct one per process and share it.
type CachedClient struct {
	upstream Client
	local    *cache.Cache
	shared   SharedCache
	group    singleflight.Group
	limiter  *rate.Limiter
	opts     Options
	log      zerolog.Logger
}

// NewCachedClient wraps upstream
func NewCachedClient(upstream Client, opts Options, log zerolog.Logger) *CachedClient {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = 15 * time.Minute
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	return &CachedClient{
		upstream: upstream,
		local:    cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		shared:   opts.Shared,
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		opts:     opts,
		log:      log.With().Str("component", "marketdata").Logger(),
	}
}

// Lookup returns the quote for ticker, serving repeated lookups from cache
func (c *CachedClient) Lookup(ctx context.Context, ticker string) (*Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if cached, ok := c.local.Get(ticker); ok {
		return entryResult(ticker, cached.(*CacheEntry))
	}

	// The fetch is shared by every caller of the same ticker, so it runs
	// detached from the caller that started it.
	ch := c.group.DoChan(ticker, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()
		return c.fetch(fctx, ticker)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug().Str("ticker", ticker).Msg("Joined in-flight lookup")
		}
		return entryResult(ticker, res.Val.(*CacheEntry))
	}
}

func (c *CachedClient) fetch(ctx context.Context, ticker string) (*CacheEntry, error) {
	if c.shared != nil {
		entry, err := c.shared.Get(ctx, ticker)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Shared cache read failed")
		} else if entry != nil {
			c.local.Set(ticker, entry, c.ttl(entry))
			return entry, nil
		}
	}

	entry, err := c.fetchUpstream(ctx, ticker)
	if err != nil {
		return nil, err
	}

	c.local.Set(ticker, entry, c.ttl(entry))
	if c.shared != nil {
		if err := c.shared.Set(ctx, ticker, entry, c.ttl(entry)); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Shared cache write failed")
		}
	}
	return entry, nil
}

func (c *CachedClient) fetchUpstream(ctx context.Context, ticker string) (*CacheEntry, error) {
	var quote *Quote
	attempt := 0

	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		q, err := c.upstream.Lookup(ctx, ticker)
		if err != nil {
			if IsTransient(err) {
				c.log.Warn().Err(err).Str("ticker", ticker).Int("attempt", attempt).Msg("Transient market data failure")
				return err
			}
			return backoff.Permanent(err)
		}
		quote = q
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.opts.MaxRetries, 0))), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &CacheEntry{}, nil
		}
		return nil, fmt.Errorf("lookup %s failed after %d attempts: %w", ticker, attempt, err)
	}
	return &CacheEntry{Quote: quote}, nil
}

func (c *CachedClient) ttl(entry *CacheEntry) time.Duration {
	if entry.Quote == nil {
		return c.opts.NegativeTTL
	}
	return c.opts.CacheTTL
}

func entryResult(ticker string, entry *CacheEntry) (*Quote, error) {
	if entry.Quote == nil {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	q := *entry.Quote
	return &q, nil
}
