package game

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/Fullann/Slither.io/internal/config"
)

// ErrUnknownSnake is returned when an id does not name a live snake.
var ErrUnknownSnake = errors.New("unknown snake")

// LeaderEntry is one row of the in-game leaderboard.
type LeaderEntry struct {
	ID    string
	Name  string
	Score int
	Kind  Kind
}

// DeathEvent describes a removed snake. Victim is a copy taken before removal.
type DeathEvent struct {
	Victim   Snake
	KillerID string
	Food     []*Food
}

// BoostDrop is a pellet shed by a boosting snake.
type BoostDrop struct {
	SnakeID string
	Food    *Food
}

// PopulationResult lists bots added and removed by one population check.
type PopulationResult struct {
	Spawned []string
	Removed []string
}

// StepResult is everything that happened during one tick.
type StepResult struct {
	Tick        uint64
	Deaths      []DeathEvent
	Meals       []Meal
	Boosts      []BoostDrop
	FoodAdded   []*Food
	FoodRemoved []string
	Population  PopulationResult
}

// World owns the simulation state. It is not safe for concurrent use; the
// room goroutine is its only caller.
type World struct {
	cfg  *config.Config
	rng  *rand.Rand
	reg  *Registry
	food *FoodField
	grid *SpatialGrid

	tick      uint64
	seq       uint64
	botSeq    int
	recheckAt uint64 // 0 when no population check is pending

	leaderboard []LeaderEntry
	scratch     []*Snake
	views       []SnakeView
	maxFood     float64
}

// NewWorld creates a world and fills the food field to its target.
func NewWorld(cfg *config.Config, rng *rand.Rand) *World {
	w := &World{
		cfg:     cfg,
		rng:     rng,
		reg:     NewRegistry(),
		food:    NewFoodField(cfg.Food, cfg.World, rng),
		grid:    NewSpatialGrid(cfg.World.GridCellSize),
		maxFood: maxFoodSize(cfg.Food),
	}
	w.food.TopUp(cfg.Food.Target)
	// The initial field goes out with the first full state, not as a delta
	w.food.Drain()
	return w
}

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 { return w.tick }

// Config returns the configuration the world was built with.
func (w *World) Config() *config.Config { return w.cfg }

// Food returns the food field.
func (w *World) Food() *FoodField { return w.food }

// Snake returns a live snake by id. The pointer is valid until the next
// spawn or removal.
func (w *World) Snake(id string) (*Snake, bool) { return w.reg.Get(id) }

// Snakes returns every live snake in spawn order. The pointers are valid
// until the next spawn or removal.
func (w *World) Snakes() []*Snake { return w.reg.Snakes(nil) }

// Counts returns the number of human and bot snakes.
func (w *World) Counts() (humans, bots int) { return w.reg.Counts() }

// Leaderboard returns the ranking computed on the last step.
func (w *World) Leaderboard() []LeaderEntry { return w.leaderboard }

// Spawn places a new human snake at a random position. An empty color picks
// one from the palette.
func (w *World) Spawn(id, name, color string, userID int64) Snake {
	s := w.newSnake(id, KindHuman, name, color)
	s.UserID = userID
	w.reg.AddHuman(s)
	w.updateLeaderboard()
	return s
}

func (w *World) spawnBot() Snake {
	w.botSeq++
	bc := w.cfg.Bots
	name := fmt.Sprintf("%s_%d", bc.Names[w.rng.Intn(len(bc.Names))], w.botSeq)
	s := w.newSnake(fmt.Sprintf("bot_%d", w.botSeq), KindBot, name, "")
	b := NewBrain(SampleTraits(bc, w.rng), w.tick, w.botSeq%w.cfg.Tick.BotStride, w.cfg.Derived, w.rng)
	w.reg.AddBot(s, b)
	return s
}

func (w *World) newSnake(id string, kind Kind, name, color string) Snake {
	sc := w.cfg.Snake
	if color == "" {
		color = sc.Colors[w.rng.Intn(len(sc.Colors))]
	}
	m := sc.SpawnMargin
	x := m + w.rng.Float64()*(w.cfg.World.Width-2*m)
	y := m + w.rng.Float64()*(w.cfg.World.Height-2*m)
	angle := w.rng.Float64() * 2 * math.Pi
	s := NewSnake(id, kind, name, color, x, y, NormalizeAngle(angle), sc)
	w.seq++
	s.Seq = w.seq
	s.BornTick = w.tick
	return s
}

// Remove takes a snake out of the world and drops its body as food.
func (w *World) Remove(id string) (DeathEvent, error) {
	s, ok := w.reg.Get(id)
	if !ok {
		return DeathEvent{}, ErrUnknownSnake
	}
	ev := w.kill(s, "")
	w.reg.Remove(id)
	w.scheduleRecheck()
	w.updateLeaderboard()
	return ev, nil
}

// SetTarget steers a snake toward a world point.
func (w *World) SetTarget(id string, x, y float64) error {
	s, ok := w.reg.Get(id)
	if !ok {
		return ErrUnknownSnake
	}
	s.SteerToward(x, y)
	return nil
}

// SetHeading steers a snake toward an absolute heading.
func (w *World) SetHeading(id string, angle float64) error {
	s, ok := w.reg.Get(id)
	if !ok {
		return ErrUnknownSnake
	}
	s.SteerAngle(angle)
	return nil
}

// SetBoost records a boost intent. The integrator decides whether it applies.
func (w *World) SetBoost(id string, on bool) error {
	s, ok := w.reg.Get(id)
	if !ok {
		return ErrUnknownSnake
	}
	s.WantBoost = on
	return nil
}

// EatClaim handles a client-reported meal. The pellet is eaten only if it is
// within reach of the head, with EatSlack of tolerance for client lag.
func (w *World) EatClaim(id, foodID string) (Meal, bool) {
	s, ok := w.reg.Get(id)
	if !ok || !s.Alive {
		return Meal{}, false
	}
	fd, ok := w.food.Get(foodID)
	if !ok {
		return Meal{}, false
	}
	h := s.Head()
	reach := s.HeadRadius + fd.Size + w.cfg.Collision.EatSlack
	if distSq(h.X, h.Y, fd.X, fd.Y) >= reach*reach {
		return Meal{}, false
	}
	eaten, repl, ok := w.food.Consume(foodID)
	if !ok {
		return Meal{}, false
	}
	s.Score += eaten.Value
	return Meal{SnakeID: id, Food: eaten, Replacement: repl, Score: s.Score}, true
}

// ReportDeath handles a client-reported death. The reporter's snake always
// dies; killedBy is credited only if its body is actually touching the
// victim's head.
func (w *World) ReportDeath(id, killedBy string) (DeathEvent, error) {
	s, ok := w.reg.Get(id)
	if !ok {
		return DeathEvent{}, ErrUnknownSnake
	}
	killer := ""
	if killedBy != "" && killedBy != id {
		if k, ok := w.reg.Get(killedBy); ok && w.touches(k, s.Head()) {
			k.Kills++
			killer = killedBy
		}
	}
	ev := w.kill(s, killer)
	w.reg.Remove(id)
	w.scheduleRecheck()
	w.updateLeaderboard()
	return ev, nil
}

// touches reports whether any segment of k lies within collision range of head.
func (w *World) touches(k *Snake, head Segment) bool {
	slack := w.cfg.Collision.KillSlack
	for _, seg := range k.Segments {
		r := w.cfg.Snake.HeadRadius + seg.R + slack
		if distSq(head.X, head.Y, seg.X, seg.Y) < r*r {
			return true
		}
	}
	return false
}

// kill marks s dead, drops its body and returns the event. The caller removes
// it from the registry afterwards.
func (w *World) kill(s *Snake, killerID string) DeathEvent {
	s.Alive = false
	ev := DeathEvent{Victim: *s, KillerID: killerID}
	ev.Food = DropBody(s, w.food, w.cfg.Collision, w.cfg.Food, w.rng)
	return ev
}

func (w *World) scheduleRecheck() {
	at := w.tick + uint64(w.cfg.Derived.DeathRecheckTicks)
	if w.recheckAt == 0 || at < w.recheckAt {
		w.recheckAt = at
	}
}

// ManagePopulation spawns or removes bots so the arena stays populated.
// Removed bots vanish without dropping food. While a post-death recheck is
// pending only removals happen; Step spawns the replacements when it is due.
func (w *World) ManagePopulation() PopulationResult {
	humans, bots := w.reg.Counts()
	plan := PlanPopulation(humans, bots, w.cfg.Bots)
	if w.recheckAt != 0 {
		plan.Spawn = 0
	}

	var res PopulationResult
	if plan.Despawn > 0 {
		for _, id := range w.reg.OldestBots(plan.Despawn) {
			w.reg.Remove(id)
			res.Removed = append(res.Removed, id)
		}
	}
	for i := 0; i < plan.Spawn; i++ {
		res.Spawned = append(res.Spawned, w.spawnBot().ID)
	}
	if plan.Spawn > 0 || plan.Despawn > 0 {
		w.updateLeaderboard()
	}
	return res
}

// Step advances the simulation by one tick: bot decisions, movement,
// collisions, food, deaths, food top-up, delayed population check and
// leaderboard, in that order.
func (w *World) Step() StepResult {
	w.tick++
	res := StepResult{Tick: w.tick}

	snakes := w.reg.Snakes(w.scratch[:0])
	w.scratch = snakes

	w.thinkBots(snakes)

	sc, fc := w.cfg.Snake, w.cfg.Food
	for _, s := range snakes {
		shed, ok := Integrate(s, sc, w.cfg.World, w.rng)
		if !ok {
			continue
		}
		x := shed.X + (w.rng.Float64()*2-1)*sc.BoostDropJitter
		y := shed.Y + (w.rng.Float64()*2-1)*sc.BoostDropJitter
		if fd, ok := w.food.Spawn(x, y, FoodBoost, fc.BoostValue, fc.BoostSize, s.Color); ok {
			res.Boosts = append(res.Boosts, BoostDrop{SnakeID: s.ID, Food: fd})
		}
	}

	w.grid.Clear()
	for _, s := range snakes {
		w.grid.InsertSnakeBody(s, w.cfg.Collision.Prefix)
	}
	deaths := DetectCollisions(snakes, w.grid, w.cfg.Collision)

	dead := make(map[string]bool, len(deaths))
	for _, d := range deaths {
		dead[d.VictimID] = true
	}
	for _, s := range snakes {
		if !dead[s.ID] {
			res.Meals = append(res.Meals, ConsumeFood(s, w.food, w.maxFood)...)
		}
	}

	if len(deaths) > 0 {
		// Credit killers before any victim leaves the registry. A killer
		// that died head-on in the same tick still gets the kill.
		for _, d := range deaths {
			if k, ok := w.reg.Get(d.KillerID); ok {
				k.Kills++
			}
		}
		for _, d := range deaths {
			if s, ok := w.reg.Get(d.VictimID); ok {
				res.Deaths = append(res.Deaths, w.kill(s, d.KillerID))
			}
		}
		// Structural changes last; they invalidate the pointers above
		for _, d := range res.Deaths {
			w.reg.Remove(d.Victim.ID)
		}
		w.scheduleRecheck()
	}

	w.food.TopUp(w.cfg.Tick.FoodTopUpPerTick)

	if w.recheckAt != 0 && w.tick >= w.recheckAt {
		w.recheckAt = 0
		res.Population = w.ManagePopulation()
	}

	w.updateLeaderboard()
	res.FoodAdded, res.FoodRemoved = w.food.Drain()
	return res
}

// thinkBots runs the controller for bots whose stride slot is due.
func (w *World) thinkBots(snakes []*Snake) {
	w.views = w.views[:0]
	for _, s := range snakes {
		h := s.Head()
		w.views = append(w.views, SnakeView{ID: s.ID, X: h.X, Y: h.Y, Length: s.Length()})
	}

	stride := uint64(w.cfg.Tick.BotStride)
	bc := w.cfg.Bots
	w.reg.EachBot(func(s *Snake, b *Brain) {
		if !s.Alive || (w.tick+uint64(b.Slot))%stride != 0 {
			return
		}
		h := s.Head()
		fd, dist := w.food.Nearest(h.X, h.Y, bc.SenseRadius)
		p := Perception{
			Tick:     w.tick,
			Self:     SnakeView{ID: s.ID, X: h.X, Y: h.Y, Length: s.Length()},
			Heading:  s.TargetAngle,
			Others:   w.views,
			Food:     fd,
			FoodDist: dist,
			World:    w.cfg.World,
		}
		intent, next := Decide(p, *b, bc, w.cfg.Derived, w.rng)
		*b = next
		s.TargetAngle = NormalizeAngle(intent.Angle)
		s.WantBoost = intent.Boost
	})
}

func (w *World) updateLeaderboard() {
	snakes := w.reg.Snakes(w.scratch[:0])
	w.scratch = snakes
	slices.SortFunc(snakes, func(a, b *Snake) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	n := min(len(snakes), w.cfg.Net.LeaderboardSize)
	w.leaderboard = w.leaderboard[:0]
	for _, s := range snakes[:n] {
		w.leaderboard = append(w.leaderboard, LeaderEntry{ID: s.ID, Name: s.Name, Score: s.Score, Kind: s.Kind})
	}
}
