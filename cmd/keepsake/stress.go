package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/event"
	"github.com/plus3/keepsake/filter"
	"github.com/plus3/keepsake/load"
	"github.com/plus3/keepsake/metrics"
	"github.com/plus3/keepsake/save"
	"github.com/plus3/keepsake/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const stressSlot = "stress"

func stressCmd() *cobra.Command {
	var gcPauseMetrics bool
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a simulation that saves periodically and reloads at the end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("entities") {
				cfg.Stress.Entities, _ = flags.GetInt("entities")
			}
			if flags.Changed("duration") {
				cfg.Stress.Duration, _ = flags.GetDuration("duration")
			}
			if flags.Changed("save-every") {
				cfg.Stress.SaveEvery, _ = flags.GetInt("save-every")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			report, err := runStress(cmd.Context(), gcPauseMetrics)
			if err != nil {
				return err
			}
			return report.Generate(cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int("entities", 0, "initial number of parent entities")
	cmd.Flags().Duration("duration", 0, "total duration of the run")
	cmd.Flags().Int("save-every", 0, "frames between saves (0 disables periodic saves)")
	cmd.Flags().BoolVar(&gcPauseMetrics, "gc-pause-metrics", false, "include GC pause metrics in the report")
	return cmd
}

func runStress(ctx context.Context, gcPauseMetrics bool) (*Report, error) {
	codec, err := snapshot.ByName(cfg.Snapshot.CodecName())
	if err != nil {
		return nil, err
	}
	store, err := openSlots()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	store.WithCodec(codec.Name())

	types := newTypes()
	storage := ecs.NewStorage(types.Components())
	bus := event.NewBus()
	collector := metrics.New(prometheus.NewRegistry())
	collector.Observe(bus)

	saver := save.NewSaver(storage, types, save.WithCodec(codec), save.WithBus(bus), save.WithLogger(logger))
	loader := load.NewLoader(storage, types, load.WithCodec(codec), load.WithBus(bus), load.WithLogger(logger))

	report := &Report{
		Duration:       cfg.Stress.Duration,
		Entities:       cfg.Stress.Entities,
		Children:       cfg.Stress.Children,
		SaveEvery:      cfg.Stress.SaveEvery,
		Codec:          codec.Name(),
		GCPauseMetrics: gcPauseMetrics,
	}
	event.Subscribe(bus, func(ev *save.Saved) {
		report.SaveTime.Samples = append(report.SaveTime.Samples, ev.Duration)
		report.SnapshotBytes = ev.Bytes
	})

	req := save.Request{
		Globals: filter.DenyAll().Allow("stress.Clock"),
		Sink:    store.Sink(stressSlot),
	}

	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&movement{})
	scheduler.Register(&follow{})
	scheduler.Register(&decay{})
	scheduler.Register(&autosave{every: int64(cfg.Stress.SaveEvery), req: req})
	scheduler.Register(save.NewSystem(saver))

	logger.Info("populating storage", zap.Int("parents", cfg.Stress.Entities), zap.Int("children", cfg.Stress.Children))
	populate(storage, cfg.Stress.Entities, cfg.Stress.Children)
	report.Live = storage.Len()

	runtime.ReadMemStats(&report.MemStatsStart)
	logger.Info("running simulation", zap.Duration("duration", cfg.Stress.Duration))

	ctx, cancel := context.WithTimeout(ctx, cfg.Stress.Duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := startTime
Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			scheduler.Once(deltaTime.Seconds())
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
		}
	}
	report.TotalTime = time.Since(startTime)

	// A final save guarantees there is something to reload.
	if _, err := saver.Save(req); err != nil {
		return nil, err
	}
	loaded, err := loader.Load(load.Request{Source: store.Source(stressSlot)})
	if err != nil {
		return nil, err
	}
	report.LoadTime = loaded.Duration
	report.Loaded = len(loaded.Entities)
	report.Dangling = len(loaded.Dangling)
	if report.Loaded != report.Live {
		return nil, fmt.Errorf("reloaded %d entities, expected %d", report.Loaded, report.Live)
	}

	report.UpdateTime.Finalize()
	report.SaveTime.Finalize()
	report.Operations = testutil.ToFloat64(collector.Operations.WithLabelValues("save", "success", ""))
	runtime.ReadMemStats(&report.MemStatsEnd)

	logger.Info("stress run complete", zap.Int64("updates", report.TotalUpdates))
	return report, nil
}
