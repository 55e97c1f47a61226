package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/scenebridge/ecs"
)

type Report struct {
	// Configuration
	Duration       time.Duration
	SpawnRate      int
	Lifetime       int
	PhysicsEvery   int
	GCPauseMetrics bool

	// Results
	TotalTime   time.Duration
	PhysicsTime Stats
	VisualTime  Stats
	Storage     *ecs.StorageStats
	Scheduler   *ecs.SchedulerStats

	// Host accounting
	LiveObjectsBeforeShutdown int
	LiveObjectsAfterShutdown  int
	SceneRefs                 int
	TextureRefs               int

	MemStatsStart runtime.MemStats
	MemStatsEnd   runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		s.Min = min(s.Min, sample)
		s.Max = max(s.Max, sample)
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Scene Bridge Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Spawns per Physics Frame:** {{.SpawnRate}}
- **Instance Lifetime (physics frames):** {{.Lifetime}}
- **Physics Frame Every:** {{.PhysicsEvery}} visual frames

## Performance Results
- **Total Test Time:** {{.TotalTime}}
- **Physics Updates:** {{len .PhysicsTime.Samples}}
  - **Avg:** {{.PhysicsTime.Avg}}
  - **Min:** {{.PhysicsTime.Min}}
  - **Max:** {{.PhysicsTime.Max}}
- **Visual Updates:** {{len .VisualTime.Samples}}
  - **Avg:** {{.VisualTime.Avg}}
  - **Min:** {{.VisualTime.Min}}
  - **Max:** {{.VisualTime.Max}}
{{with .Scheduler}}
## Systems
{{range .Systems}}- {{.Name}} ({{.Stage}}): {{.ExecutionCount}} runs, {{.SkipCount}} skipped, avg {{.AvgDuration}}
{{end}}{{end}}{{with .Storage}}
## Storage at End
- Entities: {{.TotalEntityCount}} in {{.ArchetypeCount}} archetypes
- Singletons: {{.SingletonCount}}
{{end}}
## Host Objects
- Live before shutdown: {{.LiveObjectsBeforeShutdown}}
- Live after shutdown:  {{.LiveObjectsAfterShutdown}}
- Scene references after shutdown:   {{.SceneRefs}} (expected 1, the loader cache)
- Texture references after shutdown: {{.TextureRefs}} (expected 1, the loader cache)

## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	return tmpl.Execute(w, r)
}
