package database

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

func TestCompaniesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("CreateCompany and GetCompany", func(t *testing.T) {
		testDB.TruncateAll(t)

		sector := "Technology"
		c := &models.Company{Ticker: "AAPL", Name: "Apple Inc.", Sector: &sector}
		require.NoError(t, testDB.CreateCompany(ctx, c))
		assert.False(t, c.CreatedAt.IsZero())

		got, err := testDB.GetCompany(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc.", got.Name)
		require.NotNil(t, got.Sector)
		assert.Equal(t, "Technology", *got.Sector)
	})

	t.Run("CreateCompany rejects duplicate ticker", func(t *testing.T) {
		testDB.TruncateAll(t)
		testDB.seedCompany(t, "MSFT", "Microsoft")

		err := testDB.CreateCompany(ctx, &models.Company{Ticker: "MSFT", Name: "Other"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("GetCompany returns ErrNotFound", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetCompany(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CreateCompanyIfAbsent is idempotent under concurrency", func(t *testing.T) {
		testDB.TruncateAll(t)

		var wg sync.WaitGroup
		var mu sync.Mutex
		createdCount := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				stored, created, err := testDB.CreateCompanyIfAbsent(ctx, &models.Company{Ticker: "NVDA", Name: "NVIDIA"})
				assert.NoError(t, err)
				if stored != nil {
					assert.Equal(t, "NVDA", stored.Ticker)
				}
				if created {
					mu.Lock()
					createdCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, createdCount)
		companies, err := testDB.ListCompanies(ctx)
		require.NoError(t, err)
		assert.Len(t, companies, 1)
	})

	t.Run("CreateCompanyIfAbsent keeps the existing row", func(t *testing.T) {
		testDB.TruncateAll(t)
		testDB.seedCompany(t, "AMD", "Advanced Micro Devices")

		stored, created, err := testDB.CreateCompanyIfAbsent(ctx, &models.Company{Ticker: "AMD", Name: "Renamed"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Advanced Micro Devices", stored.Name)
	})

	t.Run("UpdateCompany applies partial update", func(t *testing.T) {
		testDB.TruncateAll(t)
		testDB.seedCompany(t, "IBM", "IBM")

		sector := "Technology"
		got, err := testDB.UpdateCompany(ctx, "IBM", &models.CompanyUpdate{Sector: &sector})
		require.NoError(t, err)
		assert.Equal(t, "IBM", got.Name)
		require.NotNil(t, got.Sector)
		assert.Equal(t, "Technology", *got.Sector)

		_, err = testDB.UpdateCompany(ctx, "NOPE", &models.CompanyUpdate{Sector: &sector})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteCompany cascades to positions and prices", func(t *testing.T) {
		testDB.TruncateAll(t)
		testDB.seedCompany(t, "TSLA", "Tesla")
		p := testDB.seedPortfolio(t, "Main")
		pos := newTestPosition(p.ID, "TSLA")
		require.NoError(t, testDB.CreatePosition(ctx, pos))
		require.NoError(t, testDB.UpsertPrice(ctx, newTestPrice("TSLA", "2024-01-05", "240.5")))

		require.NoError(t, testDB.DeleteCompany(ctx, "TSLA"))

		_, err := testDB.GetPosition(ctx, pos.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		prices, err := testDB.ListPrices(ctx, "TSLA")
		require.NoError(t, err)
		assert.Empty(t, prices)

		assert.ErrorIs(t, testDB.DeleteCompany(ctx, "TSLA"), ErrNotFound)
	})
}
