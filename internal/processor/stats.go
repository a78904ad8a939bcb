package processor

import (
	"sync/atomic"
	"time"
)

type serviceStats struct {
	processed  atomic.Int64
	failed     atomic.Int64
	durationNs atomic.Int64
	startedAt  time.Time
}

type statsSnapshot struct {
	Processed     int64
	Failed        int64
	RatePerSecond float64
	AvgDuration   time.Duration
	Uptime        time.Duration
}

func newServiceStats() *serviceStats {
	return &serviceStats{startedAt: time.Now()}
}

func (s *serviceStats) recordSuccess(d time.Duration) {
	s.processed.Add(1)
	s.durationNs.Add(int64(d))
}

func (s *serviceStats) recordFailure() {
	s.failed.Add(1)
}

func (s *serviceStats) snapshot() statsSnapshot {
	snap := statsSnapshot{
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		Uptime:    time.Since(s.startedAt),
	}
	if secs := snap.Uptime.Seconds(); secs > 0 {
		snap.RatePerSecond = float64(snap.Processed) / secs
	}
	if snap.Processed > 0 {
		snap.AvgDuration = time.Duration(s.durationNs.Load() / snap.Processed)
	}
	return snap
}
