package ecs

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// SchedulerStats summarizes scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	Ticks           uint64
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats holds execution timings for one system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type binder interface {
	Init(storage *Storage)
}

type refresher interface {
	Execute()
}

type registeredSystem struct {
	system  System
	queries []refresher
	stats   SystemStats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithWorkers sets UpdateFrame.Workers. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scheduler) { s.workers = n }
}

// WithChunkSize sets UpdateFrame.ChunkSize.
func WithChunkSize(n int) Option {
	return func(s *Scheduler) { s.chunkSize = n }
}

// Scheduler runs registered systems in order, once per tick, and owns the
// simulation clock.
type Scheduler struct {
	storage   *Storage
	systems   []*registeredSystem
	logger    *zap.Logger
	workers   int
	chunkSize int

	tick     uint64
	elapsed  float64
	commands *Commands
}

// NewScheduler creates a scheduler for storage.
func NewScheduler(storage *Storage, opts ...Option) *Scheduler {
	s := &Scheduler{
		storage:   storage,
		logger:    zap.NewNop(),
		chunkSize: DefaultChunkSize,
		commands:  NewCommands(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register appends a system and binds its Query and Singleton fields.
func (s *Scheduler) Register(system System) {
	entry := &registeredSystem{system: system}
	entry.queries = s.bindFields(system)

	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	entry.stats.Name = t.Name()
	entry.stats.MinDuration = time.Duration(1<<63 - 1)

	s.systems = append(s.systems, entry)
	s.logger.Debug("system registered",
		zap.String("system", entry.stats.Name),
		zap.Int("queries", len(entry.queries)))
}

func (s *Scheduler) bindFields(system System) []refresher {
	v := reflect.ValueOf(system)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	v = v.Elem()

	var queries []refresher
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}
		addr := field.Addr().Interface()
		if b, ok := addr.(binder); ok {
			b.Init(s.storage)
		}
		if r, ok := addr.(refresher); ok {
			queries = append(queries, r)
		}
	}
	return queries
}

// Storage returns the scheduled storage.
func (s *Scheduler) Storage() *Storage {
	return s.storage
}

// Elapsed returns the simulation clock after the last tick.
func (s *Scheduler) Elapsed() float64 {
	return s.elapsed
}

// Tick returns the number of ticks run so far.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// Once advances the clock by dt seconds and runs one tick.
func (s *Scheduler) Once(dt float64) {
	s.Advance(s.elapsed+dt, float32(dt))
}

// Advance runs one tick with an explicit clock. elapsed should not go
// backwards; timers in systems assume a monotonic clock.
func (s *Scheduler) Advance(elapsed float64, dt float32) {
	s.tick++
	s.elapsed = elapsed

	frame := &UpdateFrame{
		Tick:        s.tick,
		ElapsedTime: elapsed,
		DeltaTime:   dt,
		Workers:     s.workers,
		ChunkSize:   s.chunkSize,
		Commands:    s.commands,
		Storage:     s.storage,
	}

	for _, entry := range s.systems {
		for _, q := range entry.queries {
			q.Execute()
		}

		start := time.Now()
		entry.system.Execute(frame)
		entry.stats.record(time.Since(start))
	}

	applied := s.commands.Flush(s.storage)
	s.logger.Debug("tick complete",
		zap.Uint64("tick", s.tick),
		zap.Float64("elapsed", elapsed),
		zap.Float32("dt", dt),
		zap.Int("commands", applied))
}

func (st *SystemStats) record(d time.Duration) {
	st.ExecutionCount++
	st.LastDuration = d
	st.TotalDuration += d
	st.MinDuration = min(st.MinDuration, d)
	st.MaxDuration = max(st.MaxDuration, d)
}

// Run ticks at the given interval until ctx is done, using wall-clock
// deltas.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("interval", interval),
		zap.Int("systems", len(s.systems)))

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped",
				zap.Uint64("ticks", s.tick),
				zap.Float64("elapsed", s.elapsed))
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.Once(dt)
		}
	}
}

// GetStats returns execution statistics per system.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Ticks:       s.tick,
		Systems:     make([]SystemStats, len(s.systems)),
	}
	for i, entry := range s.systems {
		st := entry.stats
		if st.ExecutionCount > 0 {
			st.AvgDuration = st.TotalDuration / time.Duration(st.ExecutionCount)
		} else {
			st.MinDuration = 0
		}
		stats.Systems[i] = st
		stats.TotalExecutions += st.ExecutionCount
	}
	return stats
}
