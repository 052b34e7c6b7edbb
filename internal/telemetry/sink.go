package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Fullann/Slither.io/internal/config"
)

// Sink receives samples from the room without blocking it and aggregates
// them on its own goroutine. Each closed window is logged at debug level and
// appended to the CSV when an output directory is configured.
type Sink struct {
	samples chan Sample
	stop    chan struct{}
	wg      sync.WaitGroup
	window  time.Duration
	budget  time.Duration
	out     *OutputManager
	log     *slog.Logger
	now     func() time.Time
}

// NewSink creates and starts a sink. budget is the tick interval; windows
// whose 99th percentile step exceeds it are logged as warnings.
func NewSink(cfg config.TelemetryConfig, budget time.Duration, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out, err := NewOutputManager(cfg.Dir)
	if err != nil {
		return nil, err
	}
	window := cfg.Window
	if window <= 0 {
		window = 10 * time.Second
	}
	s := &Sink{
		samples: make(chan Sample, 256),
		stop:    make(chan struct{}),
		window:  window,
		budget:  budget,
		out:     out,
		log:     logger.With("component", "telemetry"),
		now:     time.Now,
	}
	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Observe queues a sample. It is dropped if the sink is behind.
func (s *Sink) Observe(sample Sample) {
	select {
	case s.samples <- sample:
	default:
	}
}

// Stop writes the partial window and closes the output file.
func (s *Sink) Stop() error {
	close(s.stop)
	s.wg.Wait()
	return s.out.Close()
}

func (s *Sink) run() {
	defer s.wg.Done()

	c := NewCollector(s.now())
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case sample := <-s.samples:
			c.Add(sample)
		case <-ticker.C:
			s.emit(c)
		case <-s.stop:
			for drained := false; !drained; {
				select {
				case sample := <-s.samples:
					c.Add(sample)
				default:
					drained = true
				}
			}
			s.emit(c)
			return
		}
	}
}

func (s *Sink) emit(c *Collector) {
	if c.Len() == 0 {
		return
	}
	ws := c.Flush(s.now())
	s.log.Debug("tick window", "stats", ws)
	if s.budget > 0 && ws.StepP99 > ms(s.budget) {
		s.log.Warn("ticks overrunning", "step_p99_ms", ws.StepP99, "budget_ms", ms(s.budget))
	}
	if err := s.out.Write(ws); err != nil {
		s.log.Error("writing telemetry", "err", err)
	}
}
