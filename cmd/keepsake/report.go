package main

import (
	"io"
	"runtime"
	"strconv"
	"text/template"
	"time"
)

type Report struct {
	// Configuration
	Duration  time.Duration
	Entities  int
	Children  int
	SaveEvery int
	Codec     string

	// Results
	Live          int
	TotalUpdates  int64
	TotalTime     time.Duration
	UpdateTime    Stats
	SaveTime      Stats
	Operations    float64
	SnapshotBytes int
	LoadTime      time.Duration
	Loaded        int
	Dangling      int

	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
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

const reportTemplate = `
# Keepsake Stress Report

## Configuration
- **Run Duration:** {{.Duration}}
- **Parents:** {{.Entities}} with {{.Children}} children each ({{.Live}} live entities)
- **Save Every:** {{.SaveEvery}} frames
- **Codec:** {{.Codec}}

## Simulation
- **Total Updates:** {{.TotalUpdates}}
- **Total Time:** {{.TotalTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}

## Save / Load
- **Saves:** {{len .SaveTime.Samples}} ({{.Operations}} counted by metrics)
- **Save Time:** avg {{.SaveTime.Avg}}, min {{.SaveTime.Min}}, max {{.SaveTime.Max}}
- **Snapshot Size:** {{mb .SnapshotBytes}} MiB
- **Load Time:** {{.LoadTime}}
- **Loaded Entities:** {{.Loaded}}
- **Dangling References:** {{.Dangling}}

## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
{{end}}`

func (r *Report) Generate(w io.Writer) error {
	fm := template.FuncMap{
		"mb": func(v int) string {
			return strconv.FormatFloat(float64(v)/1024/1024, 'f', 2, 64)
		},
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
		return err
	}
	return tmpl.Execute(w, r)
}
