package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/Fullann/Slither.io/internal/config"
)

// GameResult is the outcome of one life of an account's snake.
type GameResult struct {
	UserID   int64
	Score    int
	Length   int
	Kills    int
	Duration time.Duration
	Died     bool // false when the player disconnected alive
}

// Summary is an account's lifetime totals after a game was recorded.
type Summary struct {
	BestScore       int
	GamesPlayed     int
	TotalScore      int64
	TotalKills      int
	TotalDeaths     int
	TotalTimePlayed time.Duration
	NewRecord       bool
}

type eventKind uint8

const (
	evGameStarted eventKind = iota
	evScore
	evGameOver
)

type event struct {
	kind   eventKind
	userID int64
	points int
	result GameResult
	done   func(Summary)
}

// Recorder writes statistics in the background. Producers never block: when
// the queue is full the event is dropped. Batches are flushed when full, on
// a timer, and right away after a game over so the player sees their stats.
type Recorder struct {
	db       *DB
	events   chan event
	stop     chan struct{}
	wg       sync.WaitGroup
	batch    int
	interval time.Duration
	log      *slog.Logger
}

// NewRecorder creates and starts a recorder.
func NewRecorder(db *DB, cfg config.StoreConfig, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		db:       db,
		events:   make(chan event, cfg.QueueSize),
		stop:     make(chan struct{}),
		batch:    max(cfg.BatchSize, 1),
		interval: cfg.FlushInterval,
		log:      logger.With("component", "recorder"),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// GameStarted counts a game for the account.
func (r *Recorder) GameStarted(userID int64) {
	r.enqueue(event{kind: evGameStarted, userID: userID})
}

// ScoreGained adds eaten points to the account's total score.
func (r *Recorder) ScoreGained(userID int64, points int) {
	r.enqueue(event{kind: evScore, userID: userID, points: points})
}

// GameOver records the end of a life. done, if not nil, runs on the writer
// goroutine once the result is committed.
func (r *Recorder) GameOver(res GameResult, done func(Summary)) {
	r.enqueue(event{kind: evGameOver, userID: res.UserID, result: res, done: done})
}

func (r *Recorder) enqueue(ev event) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("stats queue full, dropping event", "user", ev.userID, "kind", ev.kind)
	}
}

// Stop flushes pending events and waits for the writer to exit.
func (r *Recorder) Stop() {
	close(r.stop)
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]event, 0, r.batch)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-r.events:
			batch = append(batch, ev)
			if len(batch) >= r.batch || ev.kind == evGameOver {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			// Drain without closing; producers may still be running
			for drained := false; !drained; {
				select {
				case ev := <-r.events:
					batch = append(batch, ev)
				default:
					drained = true
				}
			}
			if len(batch) > 0 {
				r.flush(batch)
			}
			return
		}
	}
}

type pending struct {
	done    func(Summary)
	summary Summary
}

// flush writes a batch in one transaction, then runs the callbacks.
func (r *Recorder) flush(events []event) {
	ctx := context.Background()
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		r.log.Error("begin tx", "err", err)
		return
	}
	defer tx.Rollback()

	var callbacks []pending
	for _, ev := range events {
		switch ev.kind {
		case evGameStarted:
			_, err = tx.ExecContext(ctx, "UPDATE users SET games_played = games_played + 1 WHERE id = ?", ev.userID)
		case evScore:
			_, err = tx.ExecContext(ctx, "UPDATE users SET total_score = total_score + ? WHERE id = ?", ev.points, ev.userID)
		case evGameOver:
			var sum Summary
			sum, err = applyGameOver(ctx, tx, ev.result)
			if err == nil && ev.done != nil {
				callbacks = append(callbacks, pending{ev.done, sum})
			}
		}
		if err != nil {
			// A bad row (e.g. a deleted account) must not sink the batch
			r.log.Error("recording stats", "user", ev.userID, "kind", ev.kind, "err", err)
			err = nil
		}
	}

	if err := tx.Commit(); err != nil {
		r.log.Error("commit stats", "err", err)
		return
	}
	for _, p := range callbacks {
		p.done(p.summary)
	}
}

func applyGameOver(ctx context.Context, tx *sql.Tx, res GameResult) (Summary, error) {
	var best int
	if err := tx.QueryRowContext(ctx, "SELECT best_score FROM users WHERE id = ?", res.UserID).Scan(&best); err != nil {
		return Summary{}, err
	}
	deaths := 0
	if res.Died {
		deaths = 1
	}
	_, err := tx.ExecContext(ctx, `UPDATE users SET
		best_score = MAX(best_score, ?),
		total_kills = total_kills + ?,
		total_deaths = total_deaths + ?,
		total_time_played = total_time_played + ?
		WHERE id = ?`,
		res.Score, res.Kills, deaths, res.Duration.Seconds(), res.UserID)
	if err != nil {
		return Summary{}, err
	}

	s, err := scanStats(tx.QueryRowContext(ctx, "SELECT "+statsColumns+" FROM users WHERE id = ?", res.UserID))
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		BestScore:       s.BestScore,
		GamesPlayed:     s.GamesPlayed,
		TotalScore:      s.TotalScore,
		TotalKills:      s.TotalKills,
		TotalDeaths:     s.TotalDeaths,
		TotalTimePlayed: time.Duration(s.TotalTimePlayed * float64(time.Second)),
		NewRecord:       res.Score > best,
	}, nil
}
