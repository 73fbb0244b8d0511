package main

import (
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/drift/ecs"
	"github.com/plus3/drift/sim"
)

// Report summarizes one run.
type Report struct {
	Scene     string
	Tick      time.Duration
	Workers   int
	SyncPoint bool

	Ticks      uint64
	Elapsed    float64
	WallTime   time.Duration
	Spawned    uint64
	Redirected uint64
	Movers     int
	Entities   int
	Archetypes int
	Systems    []ecs.SystemStats

	MemStatsStart runtime.MemStats
	MemStatsEnd   runtime.MemStats
}

// Collect copies the end-of-run state of world into the report.
func (r *Report) Collect(world *sim.World) {
	stats := world.Scheduler.GetStats()
	storage := world.Storage.CollectStats()
	counters := world.Counters()

	r.Ticks = stats.Ticks
	r.Elapsed = world.Scheduler.Elapsed()
	r.Systems = stats.Systems
	r.Spawned = counters.Spawned
	r.Redirected = counters.Redirected
	r.Movers = world.Movers()
	r.Entities = storage.TotalEntityCount
	r.Archetypes = storage.ArchetypeCount
}

const reportTemplate = `
# Drift Run Report

## Configuration
- **Scene:** {{if .Scene}}{{.Scene}}{{else}}(built-in){{end}}
- **Tick:** {{.Tick}}
- **Workers:** {{if .Workers}}{{.Workers}}{{else}}GOMAXPROCS{{end}}
- **Spawn visibility:** {{if .SyncPoint}}same tick{{else}}next tick{{end}}

## Simulation
- **Ticks:** {{.Ticks}}
- **Simulated time:** {{printf "%.3f" .Elapsed}}s
- **Wall time:** {{.WallTime}}
- **Spawned:** {{.Spawned}}
- **Redirects:** {{.Redirected}}
- **Live movers:** {{.Movers}}
- **Entities / archetypes:** {{.Entities}} / {{.Archetypes}}

## Systems
{{range .Systems}}- **{{.Name}}:** {{.ExecutionCount}} runs, avg {{.AvgDuration}}, min {{.MinDuration}}, max {{.MaxDuration}}
{{end}}
## Memory (raw bytes)
- Heap Alloc:  {{.MemStatsStart.HeapAlloc}} -> {{.MemStatsEnd.HeapAlloc}} (delta {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}})
- Total Alloc: {{.MemStatsStart.TotalAlloc}} -> {{.MemStatsEnd.TotalAlloc}} (delta {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}})
- Num GC:      {{.MemStatsStart.NumGC}} -> {{.MemStatsEnd.NumGC}} (delta {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}})
`

var reportFuncs = template.FuncMap{
	"bsub": func(a, b uint64) int64 {
		return int64(a) - int64(b)
	},
	"usub": func(a, b uint32) uint32 {
		return a - b
	},
}

// Generate renders the report as Markdown.
func (r *Report) Generate(w io.Writer) error {
	tmpl, err := template.New("report").Funcs(reportFuncs).Parse(reportTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, r)
}
