package game

import (
	"cmp"
	"slices"

	"github.com/mlange-42/ark/ecs"
)

// Registry stores every snake, human or bot, in one ECS world keyed by id.
// Bots carry an extra Brain component.
//
// Component pointers handed out by Get, Snakes and EachBot are only valid
// until the next Add or Remove.
type Registry struct {
	world *ecs.World

	snakes *ecs.Map1[Snake]
	bots   *ecs.Map2[Snake, Brain]
	brains *ecs.Map1[Brain]

	all       *ecs.Filter1[Snake]
	botFilter *ecs.Filter2[Snake, Brain]

	index map[string]ecs.Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	world := ecs.NewWorld()
	return &Registry{
		world:     world,
		snakes:    ecs.NewMap1[Snake](world),
		bots:      ecs.NewMap2[Snake, Brain](world),
		brains:    ecs.NewMap1[Brain](world),
		all:       ecs.NewFilter1[Snake](world),
		botFilter: ecs.NewFilter2[Snake, Brain](world),
		index:     make(map[string]ecs.Entity),
	}
}

// AddHuman stores a human snake. An existing snake with the same id is replaced.
func (r *Registry) AddHuman(s Snake) {
	r.Remove(s.ID)
	r.index[s.ID] = r.snakes.NewEntity(&s)
}

// AddBot stores a bot snake with its controller state.
func (r *Registry) AddBot(s Snake, b Brain) {
	r.Remove(s.ID)
	r.index[s.ID] = r.bots.NewEntity(&s, &b)
}

// Get returns the snake with the given id.
func (r *Registry) Get(id string) (*Snake, bool) {
	e, ok := r.index[id]
	if !ok || !r.world.Alive(e) {
		return nil, false
	}
	return r.snakes.Get(e), true
}

// Brain returns the controller state of a bot.
func (r *Registry) Brain(id string) (*Brain, bool) {
	e, ok := r.index[id]
	if !ok || !r.world.Alive(e) {
		return nil, false
	}
	if r.snakes.Get(e).Kind != KindBot {
		return nil, false
	}
	return r.brains.Get(e), true
}

// Remove deletes a snake. It reports whether the id was known.
func (r *Registry) Remove(id string) bool {
	e, ok := r.index[id]
	if !ok {
		return false
	}
	delete(r.index, id)
	if r.world.Alive(e) {
		r.world.RemoveEntity(e)
	}
	return true
}

// Len returns the number of snakes.
func (r *Registry) Len() int { return len(r.index) }

// Snakes appends every snake to buf in spawn order.
func (r *Registry) Snakes(buf []*Snake) []*Snake {
	query := r.all.Query()
	for query.Next() {
		buf = append(buf, query.Get())
	}
	slices.SortFunc(buf, func(a, b *Snake) int { return cmp.Compare(a.Seq, b.Seq) })
	return buf
}

// EachBot calls fn for every bot. fn must not add or remove snakes.
func (r *Registry) EachBot(fn func(s *Snake, b *Brain)) {
	query := r.botFilter.Query()
	for query.Next() {
		s, b := query.Get()
		fn(s, b)
	}
}

// Counts returns the number of human and bot snakes.
func (r *Registry) Counts() (humans, bots int) {
	query := r.all.Query()
	for query.Next() {
		if query.Get().Kind == KindBot {
			bots++
		} else {
			humans++
		}
	}
	return humans, bots
}

// OldestBots returns the ids of up to n bots, oldest first.
func (r *Registry) OldestBots(n int) []string {
	type aged struct {
		id  string
		seq uint64
	}
	var all []aged
	r.EachBot(func(s *Snake, _ *Brain) {
		all = append(all, aged{s.ID, s.Seq})
	})
	slices.SortFunc(all, func(a, b aged) int { return cmp.Compare(a.seq, b.seq) })
	if n > len(all) {
		n = len(all)
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = all[i].id
	}
	return ids
}
