// Package profiler - Operation timing for detection jobs.
package profiler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultMaxSamples bounds the samples kept per operation.
const DefaultMaxSamples = 600

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// OperationStats is a snapshot of one tracked operation.
type OperationStats struct {
	Count int64
	Mean  time.Duration
	Min   time.Duration
	Max   time.Duration
	// Total covers the retained samples only.
	Total time.Duration
}

// Profiler records how long named operations take.
//
// It is safe for concurrent use. A zero Profiler is not usable; use New.
type Profiler struct {
	mu             sync.Mutex
	maxSamples     int
	startTime      time.Time
	operationTimes map[string]*TimeTracker
}

// New creates a Profiler keeping at most maxSamples durations per operation.
// A value <= 0 uses DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		maxSamples:     maxSamples,
		startTime:      time.Now(),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration for name.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{minTime: duration, maxTime: duration}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Stats returns a snapshot of every operation.
func (p *Profiler) Stats() map[string]OperationStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]OperationStats, len(p.operationTimes))
	for name, t := range p.operationTimes {
		s := OperationStats{Count: t.count, Min: t.minTime, Max: t.maxTime, Total: t.totalTime}
		if n := len(t.durations); n > 0 {
			s.Mean = t.totalTime / time.Duration(n)
		}
		out[name] = s
	}
	return out
}

// Elapsed returns the time since the Profiler was created.
func (p *Profiler) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

// MarshalLogObject lets a Profiler be logged with zap.Object.
func (p *Profiler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	stats := p.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	enc.AddDuration("elapsed", p.Elapsed())
	for _, name := range names {
		s := stats[name]
		if err := enc.AddObject(name, zapcore.ObjectMarshalerFunc(func(e zapcore.ObjectEncoder) error {
			e.AddInt64("count", s.Count)
			e.AddDuration("mean", s.Mean)
			e.AddDuration("max", s.Max)
			return nil
		})); err != nil {
			return err
		}
	}
	return nil
}
