package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Fullann/Slither.io/internal/config"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name                    string
		values                  []float64
		mean, std, p50, p99, mx float64
	}{
		{"empty", nil, 0, 0, 0, 0, 0},
		{"single", []float64{4}, 4, 0, 4, 4, 4},
		{"unsorted", []float64{5, 1, 4, 2, 3}, 3, math.Sqrt(2.5), 3, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std, p50, p99, mx := Summarize(tt.values)
			got := []float64{mean, std, p50, p99, mx}
			want := []float64{tt.mean, tt.std, tt.p50, tt.p99, tt.mx}
			for i := range got {
				if math.Abs(got[i]-want[i]) > 1e-9 {
					t.Errorf("Summarize(%v)[%d] = %v, want %v", tt.values, i, got[i], want[i])
				}
			}
		})
	}
}

func TestCollectorFlush(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewCollector(start)
	for i := 1; i <= 4; i++ {
		c.Add(Sample{
			Tick:   uint64(i),
			Step:   time.Duration(i) * time.Millisecond,
			Humans: i,
			Bots:   8 - i,
			Food:   1000,
			Deaths: 1,
			Bytes:  100,
		})
	}

	ws := c.Flush(start.Add(10 * time.Second))
	if ws.Ticks != 4 || ws.FirstTick != 1 || ws.LastTick != 4 {
		t.Errorf("unexpected window bounds %+v", ws)
	}
	if ws.Humans != 4 || ws.Bots != 4 {
		t.Errorf("population should be taken from the last sample, got %d/%d", ws.Humans, ws.Bots)
	}
	if ws.Deaths != 4 || ws.BytesPerTick != 100 {
		t.Errorf("deaths=%d bytes/tick=%v", ws.Deaths, ws.BytesPerTick)
	}
	if math.Abs(ws.StepMean-2.5) > 1e-9 || ws.StepMax != 4 {
		t.Errorf("step mean=%v max=%v", ws.StepMean, ws.StepMax)
	}

	if c.Len() != 0 {
		t.Errorf("collector not reset, len %d", c.Len())
	}
	next := c.Flush(start.Add(20 * time.Second))
	if next.Ticks != 0 || next.Deaths != 0 || !next.WindowStart.Equal(start.Add(10*time.Second)) {
		t.Errorf("unexpected empty window %+v", next)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager, got %v, %v", om, err)
	}
	if err := om.Write(WindowStats{}); err != nil {
		t.Errorf("nil manager Write: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager Close: %v", err)
	}
}

func TestOutputManagerHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := om.Write(WindowStats{LastTick: uint64(i * 300), Ticks: 300}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "window_end_ms,tick,ticks,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "step_mean_ms") != 1 {
		t.Error("header written more than once")
	}
}

func TestSinkWritesPartialWindowOnStop(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSink(config.TelemetryConfig{Dir: dir, Window: time.Hour}, 33*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 10; i++ {
		s.Observe(Sample{Tick: uint64(i), Step: time.Millisecond})
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one window row, got:\n%s", data)
	}
	if !strings.Contains(lines[1], ",10,10,") {
		t.Errorf("row should cover ticks 1..10: %q", lines[1])
	}
}
