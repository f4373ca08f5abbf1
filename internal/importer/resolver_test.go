package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-monitor/internal/marketdata"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

func TestCompanyResolver_EnsureCompany(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unknown company from market data", func(t *testing.T) {
		store := newMemStore()
		market := newFakeMarket()
		market.add("AAPL", "Apple Inc.", "Technology")
		r := NewCompanyResolver(store, market, zerolog.Nop())

		c, created, err := r.EnsureCompany(ctx, "aapl")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "AAPL", c.Ticker)
		assert.Equal(t, "Apple Inc.", c.Name)
		require.NotNil(t, c.Sector)
		assert.Equal(t, "Technology", *c.Sector)
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := newMemStore()
		market := newFakeMarket()
		market.add("MSFT", "Microsoft")
		r := NewCompanyResolver(store, market, zerolog.Nop())

		first, created, err := r.EnsureCompany(ctx, "MSFT")
		require.NoError(t, err)
		assert.True(t, created)

		market.add("MSFT", "Renamed Upstream")
		second, created, err := r.EnsureCompany(ctx, "MSFT")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, first, second)
		assert.Equal(t, "Microsoft", second.Name)
		assert.Equal(t, 1, store.companyCount())
		assert.Equal(t, 1, market.callCount("MSFT"))
	})

	t.Run("existing company is returned without a lookup", func(t *testing.T) {
		store := newMemStore()
		store.companies["IBM"] = &models.Company{Ticker: "IBM", Name: "IBM"}
		market := newFakeMarket()
		r := NewCompanyResolver(store, market, zerolog.Nop())

		c, created, err := r.EnsureCompany(ctx, "IBM")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "IBM", c.Name)
		assert.Zero(t, market.callCount("IBM"))
	})

	t.Run("unknown ticker is a resolution failure", func(t *testing.T) {
		store := newMemStore()
		r := NewCompanyResolver(store, newFakeMarket(), zerolog.Nop())

		_, _, err := r.EnsureCompany(ctx, "ZZZZINVALID")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "ZZZZINVALID", resErr.Ticker)
		assert.Equal(t, "ticker not found in market data", resErr.Reason)
		assert.ErrorIs(t, err, marketdata.ErrNotFound)
		assert.Zero(t, store.companyCount())
	})

	t.Run("upstream failure is reported as unavailable", func(t *testing.T) {
		market := newFakeMarket()
		market.errs["DOWN"] = &marketdata.UpstreamError{StatusCode: 503}
		r := NewCompanyResolver(newMemStore(), market, zerolog.Nop())

		_, _, err := r.EnsureCompany(ctx, "DOWN")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "market data unavailable", resErr.Reason)
		assert.True(t, marketdata.IsTransient(err))
	})

	t.Run("concurrent calls create one company", func(t *testing.T) {
		store := newMemStore()
		market := newFakeMarket()
		market.add("NVDA", "NVIDIA")
		market.block = make(chan struct{})
		r := NewCompanyResolver(store, market, zerolog.Nop())

		var wg sync.WaitGroup
		var mu sync.Mutex
		createdCount := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, created, err := r.EnsureCompany(ctx, "NVDA")
				assert.NoError(t, err)
				if created {
					mu.Lock()
					createdCount++
					mu.Unlock()
				}
			}()
		}
		close(market.block)
		wg.Wait()

		assert.LessOrEqual(t, createdCount, 1)
		assert.Equal(t, 1, store.companyCount())
	})

	t.Run("long names are truncated to the column size", func(t *testing.T) {
		market := newFakeMarket()
		long := make([]rune, models.MaxCompanyNameLength+20)
		for i := range long {
			long[i] = 'é'
		}
		market.add("LONG", string(long))
		r := NewCompanyResolver(newMemStore(), market, zerolog.Nop())

		res, err := r.Resolve(ctx, "LONG")
		require.NoError(t, err)
		assert.True(t, res.New)
		assert.Len(t, []rune(res.Company.Name), models.MaxCompanyNameLength)
	})
}
