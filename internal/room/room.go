// Package room runs the arena: a single goroutine that owns the game world,
// drains client commands between ticks, steps the simulation at a fixed rate
// and broadcasts the results.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Fullann/Slither.io/internal/config"
	"github.com/Fullann/Slither.io/internal/game"
	"github.com/Fullann/Slither.io/internal/protocol"
	"github.com/Fullann/Slither.io/internal/store"
	"github.com/Fullann/Slither.io/internal/telemetry"
)

// Recorder persists per-account statistics. Calls must not block.
type Recorder interface {
	GameStarted(userID int64)
	ScoreGained(userID int64, points int)
	// GameOver records the end of a life. done, if not nil, is called with
	// the updated lifetime totals once they are stored.
	GameOver(res store.GameResult, done func(store.Summary))
}

// Observer receives per-tick timing samples.
type Observer interface {
	Observe(s telemetry.Sample)
}

// Options are the room's optional collaborators.
type Options struct {
	Recorder Recorder
	Observer Observer
	Logger   *slog.Logger
}

type member struct {
	conn      Conn
	userID    int64
	username  string
	alive     bool
	spawnedAt time.Time
}

// Room runs one arena. All game state is owned by the Run goroutine; other
// goroutines talk to it through Inbox.
type Room struct {
	Inbox chan any

	cfg      *config.Config
	world    *game.World
	members  map[string]*member
	recorder Recorder
	observer Observer
	log      *slog.Logger
	now      func() time.Time

	// pellet ids already sent in boost, eaten or died messages since the
	// last tick; the tick's food delta leaves them out
	announced map[string]struct{}

	humans atomic.Int64
	bots   atomic.Int64
}

// New creates a room around world. Run must be started for it to do anything.
func New(cfg *config.Config, world *game.World, opts Options) *Room {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Room{
		Inbox:     make(chan any, cfg.Net.InboxSize),
		cfg:       cfg,
		world:     world,
		members:   make(map[string]*member),
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		log:       logger.With("component", "room"),
		now:       time.Now,
		announced: make(map[string]struct{}),
	}
}

// Post queues a command without blocking. It reports false when the inbox
// is full and the command was dropped.
func (r *Room) Post(cmd any) bool {
	select {
	case r.Inbox <- cmd:
		return true
	default:
		return false
	}
}

// Send queues a command, waiting for room in the inbox.
func (r *Room) Send(ctx context.Context, cmd any) error {
	select {
	case r.Inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Counts returns the human and bot counts as of the last tick. Safe to call
// from any goroutine.
func (r *Room) Counts() (humans, bots int) {
	return int(r.humans.Load()), int(r.bots.Load())
}

// Run drives the simulation until ctx is cancelled.
func (r *Room) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Derived.TickInterval)
	defer ticker.Stop()
	population := time.NewTicker(r.cfg.Tick.PopulationInterval)
	defer population.Stop()

	r.applyPopulation(r.world.ManagePopulation())
	r.log.Info("room started", "tick_rate", r.cfg.Tick.Rate, "food", r.world.Food().Len())

	for {
		select {
		case <-ctx.Done():
			r.log.Info("room stopped", "tick", r.world.Tick())
			return
		case cmd := <-r.Inbox:
			r.handleCommand(cmd)
		case <-ticker.C:
			r.tick()
		case <-population.C:
			r.applyPopulation(r.world.ManagePopulation())
		}
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Attach:
		r.members[c.Conn.ID()] = &member{conn: c.Conn, userID: c.UserID, username: c.Username}
		r.log.Debug("client attached", "conn", c.Conn.ID(), "user", c.UserID)
	case Join:
		r.handleJoin(c)
	case Steer:
		r.handleSteer(c)
	case Boost:
		if r.live(c.ConnID) != nil {
			_ = r.world.SetBoost(c.ConnID, c.On)
		}
	case Eat:
		if r.live(c.ConnID) == nil {
			return
		}
		if meal, ok := r.world.EatClaim(c.ConnID, c.FoodID); ok {
			r.announceMeal(meal)
		}
	case Died:
		if r.live(c.ConnID) == nil {
			return
		}
		ev, err := r.world.ReportDeath(c.ConnID, c.KilledBy)
		if err != nil {
			r.log.Debug("death report for unknown snake", "conn", c.ConnID)
			return
		}
		r.announceDeath(ev)
	case Ping:
		if m, ok := r.members[c.ConnID]; ok {
			r.sendTo(m.conn, protocol.MsgPong, protocol.PongMsg{N: c.N, ServerTime: r.now().UnixMilli()})
		}
	case Leave:
		r.handleLeave(c.ConnID)
	default:
		r.log.Warn("unknown room command", "type", fmt.Sprintf("%T", cmd))
	}
}

// live returns the member for id if it currently has a snake.
func (r *Room) live(id string) *member {
	m, ok := r.members[id]
	if !ok || !m.alive {
		return nil
	}
	return m
}

func (r *Room) handleJoin(c Join) {
	m, ok := r.members[c.ConnID]
	if !ok {
		return
	}
	if m.alive {
		r.sendTo(m.conn, protocol.MsgError, protocol.ErrorMsg{Msg: "already playing"})
		return
	}

	name := cleanName(c.Req.Name, r.cfg.Net.MaxNameLen)
	if name == "" {
		name = m.username
	}
	if name == "" {
		name = "Player"
	}
	color := c.Req.Color
	if len(color) > 32 || strings.ContainsAny(color, "<>\"'") {
		color = ""
	}

	s := r.world.Spawn(c.ConnID, name, color, m.userID)
	m.alive = true
	m.spawnedAt = r.now()
	r.log.Info("player joined", "player", s.ID, "name", name, "user", m.userID)

	r.sendTo(m.conn, protocol.MsgState, r.fullState(c.ConnID))
	r.broadcastExcept(c.ConnID, protocol.MsgJoined, protocol.FromSnake(&s, r.cfg.Net.SnapshotSegments))

	if m.userID != 0 && r.recorder != nil {
		r.recorder.GameStarted(m.userID)
	}
	r.applyPopulation(r.world.ManagePopulation())
}

func (r *Room) handleSteer(c Steer) {
	if r.live(c.ConnID) == nil {
		return
	}
	d := c.Dir
	switch {
	case d.X != nil && d.Y != nil:
		_ = r.world.SetTarget(c.ConnID, *d.X, *d.Y)
	case d.A != nil:
		_ = r.world.SetHeading(c.ConnID, *d.A)
	}
}

func (r *Room) handleLeave(id string) {
	m, ok := r.members[id]
	if !ok {
		return
	}
	delete(r.members, id)
	if m.alive {
		if ev, err := r.world.Remove(id); err == nil {
			r.finishLife(m, ev.Victim, false)
		}
		r.broadcast(protocol.MsgLeft, protocol.LeftMsg{ID: id})
		r.applyPopulation(r.world.ManagePopulation())
	}
	m.conn.Close()
	r.log.Info("client left", "conn", id)
}

func (r *Room) tick() {
	start := time.Now()
	res := r.world.Step()
	stepped := time.Now()

	for _, b := range res.Boosts {
		r.broadcast(protocol.MsgBoost, protocol.BoostMsg{PlayerID: b.SnakeID, Food: protocol.FromFood(b.Food)})
		r.announced[b.Food.ID] = struct{}{}
	}
	for _, meal := range res.Meals {
		r.announceMeal(meal)
	}
	for _, ev := range res.Deaths {
		r.announceDeath(ev)
	}
	r.applyPopulation(res.Population)

	snakes := r.world.Snakes()
	msg := protocol.TickMsg{
		Tick:        res.Tick,
		Snakes:      protocol.FromSnakes(snakes, r.cfg.Net.SnapshotSegments),
		Leaderboard: protocol.FromLeaderboard(r.world.Leaderboard()),
		FoodAdded:   protocol.FromFoods(r.unannounced(res.FoodAdded)),
		FoodRemoved: r.unannouncedIDs(res.FoodRemoved),
	}
	clear(r.announced)
	size := r.broadcastTick(msg, snakes)

	humans, bots := r.world.Counts()
	r.humans.Store(int64(humans))
	r.bots.Store(int64(bots))

	if r.observer != nil {
		r.observer.Observe(telemetry.Sample{
			Tick:      res.Tick,
			Step:      stepped.Sub(start),
			Broadcast: time.Since(stepped),
			Humans:    humans,
			Bots:      bots,
			Food:      r.world.Food().Len(),
			Deaths:    len(res.Deaths),
			Meals:     len(res.Meals),
			Boosts:    len(res.Boosts),
			Bytes:     size,
		})
	}
}

func (r *Room) announceMeal(meal game.Meal) {
	msg := protocol.EatenMsg{FoodID: meal.Food.ID, PlayerID: meal.SnakeID, NewScore: meal.Score}
	if meal.Replacement != nil {
		fd := protocol.FromFood(meal.Replacement)
		msg.NewFood = &fd
	}
	r.broadcast(protocol.MsgEaten, msg)
	r.announced[meal.Food.ID] = struct{}{}
	if meal.Replacement != nil {
		r.announced[meal.Replacement.ID] = struct{}{}
	}

	if m := r.live(meal.SnakeID); m != nil && m.userID != 0 && r.recorder != nil {
		r.recorder.ScoreGained(m.userID, meal.Food.Value)
	}
}

func (r *Room) announceDeath(ev game.DeathEvent) {
	r.broadcast(protocol.MsgDied, protocol.DiedMsg{
		PlayerID: ev.Victim.ID,
		KillerID: ev.KillerID,
		NewFood:  protocol.FromFoods(ev.Food),
	})
	for _, fd := range ev.Food {
		r.announced[fd.ID] = struct{}{}
	}
	r.log.Debug("snake died", "player", ev.Victim.ID, "killer", ev.KillerID, "score", ev.Victim.Score)

	if m := r.live(ev.Victim.ID); m != nil {
		r.finishLife(m, ev.Victim, true)
	}
}

// finishLife ends a member's current snake. Deaths get a stats message;
// account holders get theirs after the recorder has stored the result.
func (r *Room) finishLife(m *member, victim game.Snake, died bool) {
	m.alive = false
	played := r.now().Sub(m.spawnedAt)
	stats := protocol.StatsMsg{
		FinalScore:  victim.Score,
		FinalLength: victim.Length(),
		Kills:       victim.Kills,
		GameTime:    played.Seconds(),
		BestScore:   victim.Score,
	}

	if m.userID == 0 || r.recorder == nil {
		if died {
			r.sendTo(m.conn, protocol.MsgStats, stats)
		}
		return
	}

	var done func(store.Summary)
	if died {
		conn, log := m.conn, r.log
		done = func(sum store.Summary) {
			stats.BestScore = sum.BestScore
			stats.GamesPlayed = sum.GamesPlayed
			stats.TotalScore = sum.TotalScore
			stats.TotalKills = sum.TotalKills
			stats.TotalDeaths = sum.TotalDeaths
			stats.TotalTimePlayed = sum.TotalTimePlayed.Seconds()
			stats.NewRecord = sum.NewRecord
			frame, err := protocol.Encode(conn.Format(), protocol.MsgStats, stats)
			if err != nil {
				log.Error("encoding stats", "err", err)
				return
			}
			conn.Send(frame)
		}
	}
	r.recorder.GameOver(store.GameResult{
		UserID:   m.userID,
		Score:    victim.Score,
		Length:   victim.Length(),
		Kills:    victim.Kills,
		Duration: played,
		Died:     died,
	}, done)
}

func (r *Room) applyPopulation(res game.PopulationResult) {
	for _, id := range res.Spawned {
		if s, ok := r.world.Snake(id); ok {
			r.broadcast(protocol.MsgJoined, protocol.FromSnake(s, r.cfg.Net.SnapshotSegments))
		}
	}
	for _, id := range res.Removed {
		r.broadcast(protocol.MsgLeft, protocol.LeftMsg{ID: id})
	}
	if len(res.Spawned)+len(res.Removed) > 0 {
		r.log.Debug("population adjusted", "spawned", len(res.Spawned), "removed", len(res.Removed))
	}
}

func (r *Room) fullState(you string) protocol.StateMsg {
	wc := r.cfg.World
	return protocol.StateMsg{
		You:         you,
		World:       protocol.WorldInfo{Width: wc.Width, Height: wc.Height, TickRate: r.cfg.Tick.Rate},
		Tick:        r.world.Tick(),
		Snakes:      protocol.FromSnakes(r.world.Snakes(), r.cfg.Net.SnapshotSegments),
		Food:        protocol.FromFoods(r.world.Food().All()),
		Leaderboard: protocol.FromLeaderboard(r.world.Leaderboard()),
	}
}

// cleanName strips control characters and caps a display name at limit runes.
func cleanName(name string, limit int) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name
}
