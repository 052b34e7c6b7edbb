package game

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Fullann/Slither.io/internal/config"
)

// FoodKind tells where a pellet came from.
type FoodKind uint8

const (
	FoodAmbient FoodKind = iota // random world spawn
	FoodBoost                   // shed from a boosting tail
	FoodDeath                   // dropped by a dead snake
)

// Food is a collectible pellet.
type Food struct {
	ID    string
	X     float64
	Y     float64
	Size  float64
	Value int
	Color string
	Kind  FoodKind
}

// FoodField owns every pellet in the world and indexes them in a hash grid.
// The field never holds more than cfg.Max pellets.
//
// Additions and removals are recorded until Drain so the broadcaster can send
// deltas instead of the whole field every tick.
type FoodField struct {
	cfg      config.FoodConfig
	world    config.WorldConfig
	rng      *rand.Rand
	items    map[string]*Food
	cells    map[cellKey][]*Food
	cellSize float64
	nextID   uint64

	added   []*Food
	fresh   map[string]struct{} // added since the last Drain
	removed []string
}

// NewFoodField creates an empty field.
func NewFoodField(cfg config.FoodConfig, world config.WorldConfig, rng *rand.Rand) *FoodField {
	return &FoodField{
		cfg:      cfg,
		world:    world,
		rng:      rng,
		items:    make(map[string]*Food, cfg.Max),
		cells:    make(map[cellKey][]*Food),
		cellSize: world.GridCellSize,
		fresh:    make(map[string]struct{}),
	}
}

// Len returns the number of pellets in the field.
func (f *FoodField) Len() int { return len(f.items) }

// Full reports whether the cap is reached.
func (f *FoodField) Full() bool { return len(f.items) >= f.cfg.Max }

// Get looks up a pellet by id.
func (f *FoodField) Get(id string) (*Food, bool) {
	fd, ok := f.items[id]
	return fd, ok
}

// All returns every pellet in unspecified order.
func (f *FoodField) All() []*Food {
	out := make([]*Food, 0, len(f.items))
	for _, fd := range f.items {
		out = append(out, fd)
	}
	return out
}

// Spawn places a pellet at (x,y), clamped to the reachable area.
// It returns false when the field is at its cap.
func (f *FoodField) Spawn(x, y float64, kind FoodKind, value int, size float64, color string) (*Food, bool) {
	if f.Full() || !finite(x, y) {
		return nil, false
	}
	f.nextID++
	fd := &Food{
		ID:    fmt.Sprintf("f%d", f.nextID),
		X:     Clamp(x, f.world.Margin, f.world.Width-f.world.Margin),
		Y:     Clamp(y, f.world.Margin, f.world.Height-f.world.Margin),
		Size:  size,
		Value: value,
		Color: color,
		Kind:  kind,
	}
	f.items[fd.ID] = fd
	k := keyFor(fd.X, fd.Y, f.cellSize)
	f.cells[k] = append(f.cells[k], fd)
	f.added = append(f.added, fd)
	f.fresh[fd.ID] = struct{}{}
	return fd, true
}

// SpawnAmbient places a value-1 pellet at a random reachable position.
func (f *FoodField) SpawnAmbient() (*Food, bool) {
	m := f.world.Margin
	x := m + f.rng.Float64()*(f.world.Width-2*m)
	y := m + f.rng.Float64()*(f.world.Height-2*m)
	size := f.cfg.MinSize + f.rng.Float64()*(f.cfg.MaxSize-f.cfg.MinSize)
	return f.Spawn(x, y, FoodAmbient, f.cfg.Value, size, randomHSL(f.rng))
}

// Remove deletes a pellet.
func (f *FoodField) Remove(id string) (*Food, bool) {
	fd, ok := f.items[id]
	if !ok {
		return nil, false
	}
	delete(f.items, id)

	k := keyFor(fd.X, fd.Y, f.cellSize)
	cell := f.cells[k]
	for i, c := range cell {
		if c == fd {
			last := len(cell) - 1
			cell[i] = cell[last]
			cell[last] = nil
			cell = cell[:last]
			break
		}
	}
	if len(cell) == 0 {
		delete(f.cells, k)
	} else {
		f.cells[k] = cell
	}

	if _, ok := f.fresh[id]; ok {
		// Never announced, so nothing to retract
		delete(f.fresh, id)
	} else {
		f.removed = append(f.removed, id)
	}
	return fd, true
}

// Consume removes a pellet and spawns exactly one ambient replacement
// (the replacement is nil only if the cap is somehow still reached).
func (f *FoodField) Consume(id string) (eaten, replacement *Food, ok bool) {
	eaten, ok = f.Remove(id)
	if !ok {
		return nil, nil, false
	}
	replacement, _ = f.SpawnAmbient()
	return eaten, replacement, true
}

// TopUp spawns ambient pellets toward cfg.Target, at most limit per call.
func (f *FoodField) TopUp(limit int) []*Food {
	deficit := f.cfg.Target - len(f.items)
	if deficit > limit {
		deficit = limit
	}
	var out []*Food
	for i := 0; i < deficit; i++ {
		fd, ok := f.SpawnAmbient()
		if !ok {
			break
		}
		out = append(out, fd)
	}
	return out
}

// Nearby appends to buf every pellet whose centre lies within radius of (x,y).
func (f *FoodField) Nearby(x, y, radius float64, buf []*Food) []*Food {
	minCX, maxCX, minCY, maxCY := cellRange(x, y, radius, f.cellSize)
	r2 := radius * radius
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, fd := range f.cells[cellKey{cx, cy}] {
				if distSq(x, y, fd.X, fd.Y) <= r2 {
					buf = append(buf, fd)
				}
			}
		}
	}
	return buf
}

// Nearest returns the closest pellet within radius, or nil.
func (f *FoodField) Nearest(x, y, radius float64) (*Food, float64) {
	minCX, maxCX, minCY, maxCY := cellRange(x, y, radius, f.cellSize)
	var best *Food
	bestD2 := radius * radius
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, fd := range f.cells[cellKey{cx, cy}] {
				if d2 := distSq(x, y, fd.X, fd.Y); d2 <= bestD2 {
					best, bestD2 = fd, d2
				}
			}
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, math.Sqrt(bestD2)
}

// Drain returns the pellets added and the ids removed since the previous call.
// A pellet added and removed in between appears in neither list.
func (f *FoodField) Drain() (added []*Food, removed []string) {
	for _, fd := range f.added {
		if _, ok := f.fresh[fd.ID]; ok {
			added = append(added, fd)
		}
	}
	removed = f.removed
	f.added = nil
	f.removed = nil
	clear(f.fresh)
	return added, removed
}

func randomHSL(rng *rand.Rand) string {
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", rng.Intn(360))
}
