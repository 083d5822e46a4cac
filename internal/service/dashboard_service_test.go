package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

type countingBeneficiaryStats struct {
	calls int
	err   error
}

func (c *countingBeneficiaryStats) Stats(ctx context.Context) (*models.RecordStats, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &models.RecordStats{Total: 12, ByStatus: map[string]int{"Active": 10, "Inactive": 2}, ActiveGrantTotal: decimal.NewFromInt(15000), MissingDetail: 3}, nil
}

type countingScholarStats struct {
	calls int
	owner *string
}

func (c *countingScholarStats) Stats(ctx context.Context, owner *string) (*models.RecordStats, error) {
	c.calls++
	c.owner = owner
	return &models.RecordStats{Total: 5, ByStatus: map[string]int{"pending": 5}}, nil
}

type fixedPending int

func (f fixedPending) CountPending(ctx context.Context) (int, error) { return int(f), nil }

func newDashboardFixture(enabled bool) (*DashboardService, *countingBeneficiaryStats, *countingScholarStats, *fakeCacheRepo) {
	ben := &countingBeneficiaryStats{}
	sch := &countingScholarStats{}
	cache := &fakeCacheRepo{}
	svc := NewDashboardService(ben, sch, fixedPending(2), NewCacheService(cache, NewMetricsService(), time.Minute, nil, enabled), time.Minute, nil)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }
	return svc, ben, sch, cache
}

func TestDashboardOverviewCachesResult(t *testing.T) {
	svc, ben, sch, cache := newDashboardFixture(true)

	first, cached, err := svc.Overview(context.Background(), staffCaller)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 12, first.Beneficiaries.Total)
	assert.Equal(t, 5, first.Scholars.Total)
	assert.Equal(t, 2, first.PendingLeaves)
	assert.Equal(t, "2025-05-01T08:00:00Z", first.GeneratedAt)
	assert.Nil(t, sch.owner)
	assert.Contains(t, cache.values, cacheKeyDashboard)

	second, cached, err := svc.Overview(context.Background(), adminCaller)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	assert.Equal(t, 1, ben.calls)

	svc.cache.Invalidate(context.Background(), cacheKeyDashboard)
	_, cached, err = svc.Overview(context.Background(), adminCaller)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, ben.calls)
}

func TestDashboardOverviewWithoutCache(t *testing.T) {
	svc, ben, _, cache := newDashboardFixture(false)

	for i := 0; i < 2; i++ {
		_, cached, err := svc.Overview(context.Background(), staffCaller)
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, 2, ben.calls)
	assert.Empty(t, cache.values)
}

func TestDashboardCacheErrorFallsBackToStore(t *testing.T) {
	svc, ben, _, cache := newDashboardFixture(true)
	cache.getErr = errors.New("redis timeout")

	_, cached, err := svc.Overview(context.Background(), staffCaller)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, ben.calls)
}

func TestDashboardForbiddenForStudents(t *testing.T) {
	svc, ben, _, _ := newDashboardFixture(true)
	_, _, err := svc.Overview(context.Background(), studentCaller)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, ben.calls)
}

func TestDashboardStoreFailure(t *testing.T) {
	svc, ben, _, cache := newDashboardFixture(true)
	ben.err = errors.New("db down")

	_, _, err := svc.Overview(context.Background(), staffCaller)
	assert.True(t, appErrors.Is(err, appErrors.ErrStorage))
	assert.NotContains(t, cache.values, cacheKeyDashboard)
}
