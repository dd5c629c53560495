package dashboard

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"sentinel/services/fraud"
)

const (
	defaultVolumeDays   = 7
	defaultRecentAlerts = 5
)

// Snapshot is one consistent fetch of the dashboard's data. Fields are nil
// when their fetch failed; Err carries the combined failures.
type Snapshot struct {
	Stats        *fraud.AlertStats
	RecentAlerts *fraud.AlertPage
	DailyVolume  []fraud.DailyVolume
	Err          error
}

// Complete returns true when every section loaded.
func (s *Snapshot) Complete() bool {
	return s.Stats != nil && s.RecentAlerts != nil && s.DailyVolume != nil
}

// FraudAPI is the slice of the fraud client the dashboard needs.
type FraudAPI interface {
	GetAlertStats(ctx context.Context) (*fraud.AlertStats, error)
	GetAlerts(ctx context.Context, filters fraud.AlertFilters) (*fraud.AlertPage, error)
	GetDailyVolume(ctx context.Context, days int) ([]fraud.DailyVolume, error)
}

// Service aggregates the dashboard's data sources.
type Service struct {
	api          FraudAPI
	volumeDays   int
	recentAlerts int
}

// NewService creates a dashboard service with the default 7-day volume
// window and 5 most-recent alerts.
func NewService(api FraudAPI) *Service {
	return &Service{
		api:          api,
		volumeDays:   defaultVolumeDays,
		recentAlerts: defaultRecentAlerts,
	}
}

// Fetch loads stats, recent alerts, and daily volume concurrently. The
// sections are independent: a failure in one leaves the others populated,
// mirroring how the dashboard renders each panel on its own. The combined
// error is reported on the snapshot, not returned, so callers always get
// whatever data arrived.
func (s *Service) Fetch(ctx context.Context) *Snapshot {
	var (
		mu   sync.Mutex
		snap Snapshot
	)

	p := pool.New().WithErrors()

	p.Go(func() error {
		stats, err := s.api.GetAlertStats(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Stats = stats
		mu.Unlock()
		return nil
	})

	p.Go(func() error {
		page, err := s.api.GetAlerts(ctx, fraud.AlertFilters{Size: s.recentAlerts})
		if err != nil {
			return err
		}
		mu.Lock()
		snap.RecentAlerts = page
		mu.Unlock()
		return nil
	})

	p.Go(func() error {
		volume, err := s.api.GetDailyVolume(ctx, s.volumeDays)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.DailyVolume = volume
		mu.Unlock()
		return nil
	})

	snap.Err = p.Wait()
	return &snap
}
