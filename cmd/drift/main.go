package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/drift/logging"
	"go.uber.org/zap"
)

func main() {
	os.Exit(drift(os.Args[1:], os.Stdout))
}

// drift runs the command line and returns the exit code, so deferred work
// such as stopping the profiler finishes before the process exits.
func drift(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("drift", flag.ContinueOnError)

	var opts Options
	fs.StringVar(&opts.ScenePath, "scene", "", "Scene YAML file. Without one a single spawner at the origin is used.")
	fs.DurationVar(&opts.Duration, "duration", 10*time.Second, "How long to run in real time.")
	fs.DurationVar(&opts.Tick, "tick", 0, "Tick interval; overrides the scene.")
	fs.IntVar(&opts.Workers, "workers", 0, "Goroutines per parallel system; overrides the scene.")
	fs.BoolVar(&opts.SyncPoint, "sync-point", false, "Apply spawns before movement within the same tick.")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "debug, info, warn or error.")
	ticks := fs.Int("ticks", 0, "Run this many fixed ticks as fast as possible instead of real time.")
	profileMode := fs.String("profile", "", "Write a cpu or mem profile to the working directory.")
	report := fs.Bool("report", true, "Print a run report to stdout.")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		logFailure(opts.LogLevel, fmt.Errorf("unknown profile mode %q", *profileMode))
		return 2
	}

	if err := run(opts, *ticks, *report, stdout); err != nil {
		logFailure(opts.LogLevel, err)
		return 1
	}
	return 0
}

// logFailure reports err through a logger built like the simulation's, or on
// stderr when the level itself is unusable.
func logFailure(level string, err error) {
	logger, lerr := logging.New(level)
	if lerr != nil {
		fmt.Fprintln(os.Stderr, "drift:", err)
		return
	}
	logger.Error("drift failed", zap.Error(err))
	_ = logger.Sync()
}

func run(opts Options, ticks int, printReport bool, stdout io.Writer) error {
	s, cleanup, err := initializeSimulation(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	world := s.World
	rep := &Report{
		Scene:     opts.ScenePath,
		Tick:      s.Scene.Tick,
		Workers:   s.Scene.Workers,
		SyncPoint: s.Scene.SyncPoint,
	}
	runtime.ReadMemStats(&rep.MemStatsStart)
	start := time.Now()

	if ticks > 0 {
		dt := s.Scene.Tick.Seconds()
		for range ticks {
			world.Scheduler.Once(dt)
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, opts.Duration)
		defer cancel()

		world.Scheduler.Run(ctx, s.Scene.Tick)
	}

	rep.WallTime = time.Since(start)
	runtime.ReadMemStats(&rep.MemStatsEnd)
	rep.Collect(world)

	s.Logger.Info("simulation finished",
		zap.Uint64("ticks", rep.Ticks),
		zap.Float64("elapsed", rep.Elapsed),
		zap.Uint64("spawned", rep.Spawned),
		zap.Int("movers", rep.Movers))

	if !printReport {
		return nil
	}
	return rep.Generate(stdout)
}
