package game

import (
	"math"
	"math/rand"
	"testing"
)

func TestCollides(t *testing.T) {
	tests := []struct {
		name string
		hx   float64
		seg  Segment
		want bool
	}{
		{"overlap", 100, Segment{X: 103, Y: 100, R: 5}, true},
		{"graze within tolerance", 100, Segment{X: 111, Y: 100, R: 5}, false},
		{"just inside", 100, Segment{X: 109.9, Y: 100, R: 5}, true},
		{"far", 100, Segment{X: 200, Y: 100, R: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Collides(tt.hx, 100, 10, tt.seg, 5); got != tt.want {
				t.Errorf("Collides = %v, want %v", got, tt.want)
			}
		})
	}
}

// bodyFrom builds a snake whose segments are exactly segs.
func bodyFrom(id string, segs ...Segment) *Snake {
	return &Snake{
		ID:         id,
		X:          segs[0].X,
		Y:          segs[0].Y,
		HeadRadius: 10,
		Segments:   segs,
		Alive:      true,
	}
}

func indexed(grid *SpatialGrid, prefix int, snakes ...*Snake) {
	grid.Clear()
	for _, s := range snakes {
		grid.InsertSnakeBody(s, prefix)
	}
}

func TestHeadIntoBodyDies(t *testing.T) {
	cc := testConfig().Collision
	a := bodyFrom("a",
		Segment{100, 100, 10},
		Segment{92, 100, 9.5},
		Segment{84, 100, 9},
	)
	b := bodyFrom("b",
		Segment{103, 124, 10},
		Segment{103, 116, 9.5},
		Segment{103, 108, 9},
		Segment{103, 100, 5},
	)
	grid := NewSpatialGrid(200)
	indexed(grid, cc.Prefix, a, b)

	deaths := DetectCollisions([]*Snake{a, b}, grid, cc)
	if len(deaths) != 1 {
		t.Fatalf("deaths = %+v, want exactly one", deaths)
	}
	if deaths[0].VictimID != "a" || deaths[0].KillerID != "b" {
		t.Errorf("death = %+v, want a killed by b", deaths[0])
	}
}

func TestNoSelfCollision(t *testing.T) {
	cc := testConfig().Collision
	// Coiled so the head sits on its own fourth segment
	s := bodyFrom("s",
		Segment{100, 100, 10},
		Segment{108, 100, 9.5},
		Segment{108, 108, 9},
		Segment{100, 108, 8.5},
		Segment{100, 101, 8},
	)
	grid := NewSpatialGrid(200)
	indexed(grid, cc.Prefix, s)

	if deaths := DetectCollisions([]*Snake{s}, grid, cc); len(deaths) != 0 {
		t.Fatalf("self collision reported: %+v", deaths)
	}
}

func TestHeadOnBothDie(t *testing.T) {
	cc := testConfig().Collision
	a := bodyFrom("a", Segment{100, 100, 10}, Segment{92, 100, 9.5})
	b := bodyFrom("b", Segment{110, 100, 10}, Segment{118, 100, 9.5})
	grid := NewSpatialGrid(200)
	indexed(grid, cc.Prefix, a, b)

	deaths := DetectCollisions([]*Snake{a, b}, grid, cc)
	if len(deaths) != 2 {
		t.Fatalf("deaths = %+v, want both snakes", deaths)
	}
	if deaths[0].KillerID != "b" || deaths[1].KillerID != "a" {
		t.Errorf("killers = %q,%q, want b,a", deaths[0].KillerID, deaths[1].KillerID)
	}
}

func TestPrefixLimitsTestedSegments(t *testing.T) {
	cc := testConfig().Collision
	a := bodyFrom("a", Segment{100, 100, 10})
	segs := []Segment{{300, 100, 10}, {292, 100, 9}, {284, 100, 8}, {101, 100, 6}}
	b := bodyFrom("b", segs...)
	grid := NewSpatialGrid(200)

	indexed(grid, 3, a, b)
	if deaths := DetectCollisions([]*Snake{a, b}, grid, cc); len(deaths) != 0 {
		t.Fatalf("segment beyond prefix collided: %+v", deaths)
	}
	indexed(grid, 4, a, b)
	if deaths := DetectCollisions([]*Snake{a, b}, grid, cc); len(deaths) != 1 {
		t.Fatalf("segment inside prefix missed: %+v", deaths)
	}
}

func TestConsumeFoodKeepsCount(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(3))
	field := NewFoodField(cfg.Food, cfg.World, rng)
	field.TopUp(100)

	fd, ok := field.Spawn(50, 50, FoodAmbient, 1, 3, "red")
	if !ok {
		t.Fatal("spawn failed")
	}
	before := field.Len()

	s := bodyFrom("s", Segment{50, 50, 10})
	meals := ConsumeFood(s, field, maxFoodSize(cfg.Food))

	var found bool
	for _, m := range meals {
		if m.Food.ID == fd.ID {
			found = true
		}
		if m.Replacement == nil {
			t.Errorf("meal of %s had no replacement", m.Food.ID)
		}
	}
	if !found {
		t.Fatalf("food at the head was not eaten: %+v", meals)
	}
	if _, ok := field.Get(fd.ID); ok {
		t.Error("eaten food still in the field")
	}
	if field.Len() != before {
		t.Errorf("food count = %d, want %d", field.Len(), before)
	}
	if s.Score != len(meals) {
		t.Errorf("score = %d, want %d", s.Score, len(meals))
	}
}

func TestDropBody(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(3))
	field := NewFoodField(cfg.Food, cfg.World, rng)

	segs := make([]Segment, 20)
	for i := range segs {
		segs[i] = Segment{X: 1000 - float64(i)*8, Y: 1000, R: 8}
	}
	s := bodyFrom("s", segs...)
	s.Color = "#abc"

	drops := DropBody(s, field, cfg.Collision, cfg.Food, rng)
	if want := 20 / cfg.Collision.DropStride; len(drops) != want {
		t.Fatalf("drops = %d, want %d", len(drops), want)
	}
	for i, fd := range drops {
		seg := segs[i*cfg.Collision.DropStride]
		if math.Abs(fd.X-seg.X) > cfg.Collision.DropJitter || math.Abs(fd.Y-seg.Y) > cfg.Collision.DropJitter {
			t.Errorf("drop %d at (%v,%v) too far from segment", i, fd.X, fd.Y)
		}
		if fd.Color != "#abc" || fd.Kind != FoodDeath || fd.Value != cfg.Food.DeathValue {
			t.Errorf("drop %d = %+v", i, fd)
		}
	}
}
