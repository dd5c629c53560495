package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/services/fraud"
)

type fakeFraudAPI struct {
	stats     *fraud.AlertStats
	statsErr  error
	page      *fraud.AlertPage
	pageErr   error
	volume    []fraud.DailyVolume
	volumeErr error

	alertFilters fraud.AlertFilters
	volumeDays   int
}

func (f *fakeFraudAPI) GetAlertStats(ctx context.Context) (*fraud.AlertStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeFraudAPI) GetAlerts(ctx context.Context, filters fraud.AlertFilters) (*fraud.AlertPage, error) {
	f.alertFilters = filters
	return f.page, f.pageErr
}

func (f *fakeFraudAPI) GetDailyVolume(ctx context.Context, days int) ([]fraud.DailyVolume, error) {
	f.volumeDays = days
	return f.volume, f.volumeErr
}

func newFakeAPI() *fakeFraudAPI {
	return &fakeFraudAPI{
		stats: &fraud.AlertStats{Total: 42, AverageScore: 55.5},
		page: &fraud.AlertPage{
			Items: []fraud.Alert{{ID: "a1"}, {ID: "a2"}},
			Total: 42, Page: 1, Size: 5, Pages: 9,
		},
		volume: []fraud.DailyVolume{{Date: "2026-08-29", Alerts: 6}},
	}
}

func TestFetch(t *testing.T) {
	api := newFakeAPI()
	snap := NewService(api).Fetch(context.Background())

	require.NoError(t, snap.Err)
	assert.True(t, snap.Complete())
	assert.Equal(t, 42, snap.Stats.Total)
	assert.Len(t, snap.RecentAlerts.Items, 2)
	assert.Len(t, snap.DailyVolume, 1)

	// Sized for the dashboard panels: five newest alerts, seven-day window.
	assert.Equal(t, 5, api.alertFilters.Size)
	assert.Equal(t, 7, api.volumeDays)
}

func TestFetch_PartialFailure(t *testing.T) {
	api := newFakeAPI()
	api.statsErr = errors.New("stats backend down")

	snap := NewService(api).Fetch(context.Background())

	// One panel failing must not take down the rest.
	require.Error(t, snap.Err)
	assert.False(t, snap.Complete())
	assert.Nil(t, snap.Stats)
	assert.NotNil(t, snap.RecentAlerts)
	assert.NotNil(t, snap.DailyVolume)
}

func TestFetch_AllFailures(t *testing.T) {
	api := newFakeAPI()
	api.statsErr = errors.New("stats down")
	api.pageErr = errors.New("alerts down")
	api.volumeErr = errors.New("volume down")

	snap := NewService(api).Fetch(context.Background())

	require.Error(t, snap.Err)
	assert.Nil(t, snap.Stats)
	assert.Nil(t, snap.RecentAlerts)
	assert.Nil(t, snap.DailyVolume)
}
