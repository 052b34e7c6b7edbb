// Package telemetry aggregates per-tick timing into fixed windows and writes
// them to CSV.
package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sample is what one tick of the room produced.
type Sample struct {
	Tick      uint64
	Step      time.Duration // simulation step
	Broadcast time.Duration // encoding and fan-out
	Humans    int
	Bots      int
	Food      int
	Deaths    int
	Meals     int
	Boosts    int
	Bytes     int // encoded tick bytes, all formats
}

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStart time.Time `csv:"-"`
	WindowEnd   time.Time `csv:"-"`
	EndUnixMs   int64     `csv:"window_end_ms"`
	FirstTick   uint64    `csv:"-"`
	LastTick    uint64    `csv:"tick"`
	Ticks       int       `csv:"ticks"`

	// Step timing in milliseconds
	StepMean float64 `csv:"step_mean_ms"`
	StepStd  float64 `csv:"step_std_ms"`
	StepP50  float64 `csv:"step_p50_ms"`
	StepP99  float64 `csv:"step_p99_ms"`
	StepMax  float64 `csv:"step_max_ms"`

	BroadcastMean float64 `csv:"broadcast_mean_ms"`
	BroadcastP99  float64 `csv:"broadcast_p99_ms"`

	// Population at window end
	Humans int `csv:"humans"`
	Bots   int `csv:"bots"`
	Food   int `csv:"food"`

	// Events during window
	Deaths int `csv:"deaths"`
	Meals  int `csv:"meals"`
	Boosts int `csv:"boosts"`

	BytesPerTick float64 `csv:"bytes_per_tick"`
}

// Collector accumulates samples for the current window. Not safe for
// concurrent use.
type Collector struct {
	start     time.Time
	step      []float64
	broadcast []float64
	last      Sample
	first     uint64
	deaths    int
	meals     int
	boosts    int
	bytes     int
}

// NewCollector starts a window at now.
func NewCollector(now time.Time) *Collector {
	return &Collector{start: now}
}

// Add records one tick.
func (c *Collector) Add(s Sample) {
	if len(c.step) == 0 {
		c.first = s.Tick
	}
	c.step = append(c.step, ms(s.Step))
	c.broadcast = append(c.broadcast, ms(s.Broadcast))
	c.deaths += s.Deaths
	c.meals += s.Meals
	c.boosts += s.Boosts
	c.bytes += s.Bytes
	c.last = s
}

// Len returns the number of samples in the current window.
func (c *Collector) Len() int { return len(c.step) }

// Flush closes the window at now, returns its statistics and starts a new one.
func (c *Collector) Flush(now time.Time) WindowStats {
	ws := WindowStats{
		WindowStart: c.start,
		WindowEnd:   now,
		EndUnixMs:   now.UnixMilli(),
		FirstTick:   c.first,
		LastTick:    c.last.Tick,
		Ticks:       len(c.step),
		Humans:      c.last.Humans,
		Bots:        c.last.Bots,
		Food:        c.last.Food,
		Deaths:      c.deaths,
		Meals:       c.meals,
		Boosts:      c.boosts,
	}
	if n := len(c.step); n > 0 {
		ws.StepMean, ws.StepStd, ws.StepP50, ws.StepP99, ws.StepMax = Summarize(c.step)
		ws.BroadcastMean, _, _, ws.BroadcastP99, _ = Summarize(c.broadcast)
		ws.BytesPerTick = float64(c.bytes) / float64(n)
	}

	*c = Collector{
		start:     now,
		step:      c.step[:0],
		broadcast: c.broadcast[:0],
	}
	return ws
}

// Summarize returns mean, standard deviation, median, 99th percentile and
// maximum of values. values is sorted in place.
func Summarize(values []float64) (mean, std, p50, p99, maxV float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Float64s(values)
	mean, std = stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	p50 = stat.Quantile(0.5, stat.Empirical, values, nil)
	p99 = stat.Quantile(0.99, stat.Empirical, values, nil)
	maxV = floats.Max(values)
	return mean, std, p50, p99, maxV
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("tick", s.LastTick),
		slog.Int("ticks", s.Ticks),
		slog.Float64("step_mean_ms", s.StepMean),
		slog.Float64("step_p99_ms", s.StepP99),
		slog.Float64("step_max_ms", s.StepMax),
		slog.Float64("broadcast_mean_ms", s.BroadcastMean),
		slog.Int("humans", s.Humans),
		slog.Int("bots", s.Bots),
		slog.Int("food", s.Food),
		slog.Int("deaths", s.Deaths),
		slog.Float64("bytes_per_tick", s.BytesPerTick),
	)
}
