package bridge

import (
	"time"

	"github.com/plus3/scenebridge/ecs"
)

// FrameCount counts completed updates of either kind.
type FrameCount uint64

// Diagnostics collects update timings and, periodically, storage statistics.
type Diagnostics struct {
	Updates    uint64
	LastUpdate time.Duration
	AvgUpdate  time.Duration
	MaxUpdate  time.Duration
	// Storage is refreshed every StatsInterval frames when StatsInterval is positive.
	Storage       *ecs.StorageStats
	StatsInterval uint64

	total time.Duration
}

func (d *Diagnostics) record(elapsed time.Duration) {
	d.Updates++
	d.LastUpdate = elapsed
	d.MaxUpdate = max(d.MaxUpdate, elapsed)
	d.total += elapsed
	d.AvgUpdate = d.total / time.Duration(d.Updates)
}

// DiagnosticsSystem advances FrameCount and refreshes storage statistics. It runs in the
// Last stage.
type DiagnosticsSystem struct {
	Frames      ecs.Singleton[FrameCount]
	Diagnostics ecs.Singleton[Diagnostics]
}

func (s *DiagnosticsSystem) Execute(frame *ecs.UpdateFrame) {
	frames := s.Frames.Get()
	if frames == nil {
		return
	}
	*frames++

	diag := s.Diagnostics.Get()
	if diag == nil || diag.StatsInterval == 0 {
		return
	}
	if uint64(*frames)%diag.StatsInterval == 1 || diag.StatsInterval == 1 {
		diag.Storage = frame.Storage.CollectStats()
	}
}
