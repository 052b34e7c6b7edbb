package game

import (
	"math"
	"math/rand"
	"testing"
)

func TestDecidePriority(t *testing.T) {
	cfg := testConfig()
	bc, d := cfg.Bots, cfg.Derived
	self := SnakeView{ID: "bot", X: 2000, Y: 2000, Length: 20}
	brain := Brain{Traits: Traits{Aggressiveness: 1, FearDistance: 150}, NextWander: 1 << 30}
	food := &Food{ID: "f1", X: 2000, Y: 2100}

	tests := []struct {
		name   string
		others []SnakeView
		food   *Food
		mode   Mode
		angle  float64
	}{
		{
			name:   "flee beats forage",
			others: []SnakeView{self, {ID: "big", X: 2100, Y: 2000, Length: 40}},
			food:   food,
			mode:   ModeFlee,
			angle:  math.Pi,
		},
		{
			name:   "bigger snake beyond fear distance is ignored",
			others: []SnakeView{{ID: "big", X: 2300, Y: 2000, Length: 40}},
			food:   food,
			mode:   ModeForage,
			angle:  math.Pi / 2,
		},
		{
			name:   "forage beats hunt",
			others: []SnakeView{{ID: "small", X: 1900, Y: 2000, Length: 5}},
			food:   food,
			mode:   ModeForage,
			angle:  math.Pi / 2,
		},
		{
			name:   "hunt smaller snake",
			others: []SnakeView{{ID: "small", X: 1900, Y: 2000, Length: 5}},
			mode:   ModeHunt,
			angle:  math.Pi,
		},
		{
			name:   "equal length is not prey",
			others: []SnakeView{{ID: "peer", X: 1900, Y: 2000, Length: 20}},
			mode:   ModeWander,
			angle:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Perception{Self: self, Others: tt.others, World: cfg.World}
			if tt.food != nil {
				p.Food = tt.food
				p.FoodDist = Distance(self.X, self.Y, tt.food.X, tt.food.Y)
			}
			intent, next := Decide(p, brain, bc, d, rand.New(rand.NewSource(1)))
			if intent.Mode != tt.mode || next.Mode != tt.mode {
				t.Fatalf("mode = %v, want %v", intent.Mode, tt.mode)
			}
			if math.Abs(NormalizeAngle(intent.Angle-tt.angle)) > 1e-9 {
				t.Errorf("angle = %v, want %v", intent.Angle, tt.angle)
			}
		})
	}
}

func TestHuntBoostsWhenFar(t *testing.T) {
	cfg := testConfig()
	self := SnakeView{ID: "bot", X: 2000, Y: 2000, Length: 20}
	brain := Brain{Traits: Traits{Aggressiveness: 1, FearDistance: 100}, NextWander: 1 << 30}

	far := Perception{Self: self, Others: []SnakeView{{ID: "s", X: 2150, Y: 2000, Length: 3}}, World: cfg.World}
	intent, _ := Decide(far, brain, cfg.Bots, cfg.Derived, rand.New(rand.NewSource(1)))
	if intent.Mode != ModeHunt || !intent.Boost {
		t.Errorf("far prey: %+v, want boosting hunt", intent)
	}

	near := Perception{Self: self, Others: []SnakeView{{ID: "s", X: 2030, Y: 2000, Length: 3}}, World: cfg.World}
	intent, _ = Decide(near, brain, cfg.Bots, cfg.Derived, rand.New(rand.NewSource(1)))
	if intent.Mode != ModeHunt || intent.Boost {
		t.Errorf("near prey: %+v, want hunt without boost", intent)
	}
}

func TestWanderChangesOnceThenHolds(t *testing.T) {
	cfg := testConfig()
	bc, d := cfg.Bots, cfg.Derived
	rng := rand.New(rand.NewSource(42))
	self := SnakeView{ID: "bot", X: 2000, Y: 2000, Length: 5}
	brain := Brain{Traits: Traits{Aggressiveness: 0.5, FearDistance: 150}, NextWander: 100}

	heading := 0.5
	for tick := uint64(1); tick < 100; tick++ {
		p := Perception{Tick: tick, Self: self, Heading: heading, World: cfg.World}
		intent, next := Decide(p, brain, bc, d, rng)
		if intent.Angle != heading {
			t.Fatalf("tick %d: heading changed before cooldown", tick)
		}
		brain = next
	}

	p := Perception{Tick: 100, Self: self, Heading: heading, World: cfg.World}
	intent, brain := Decide(p, brain, bc, d, rng)
	delta := math.Abs(NormalizeAngle(intent.Angle - heading))
	if delta == 0 || delta > bc.WanderDelta/2 {
		t.Fatalf("wander delta = %v, want in (0, %v]", delta, bc.WanderDelta/2)
	}
	if brain.NextWander < 100+uint64(d.WanderMinTicks) || brain.NextWander > 100+uint64(d.WanderMaxTicks) {
		t.Fatalf("NextWander = %d, want within cooldown range", brain.NextWander)
	}

	heading = intent.Angle
	for tick := uint64(101); tick < brain.NextWander; tick++ {
		p := Perception{Tick: tick, Self: self, Heading: heading, World: cfg.World}
		got, _ := Decide(p, brain, bc, d, rng)
		if got.Angle != heading {
			t.Fatalf("tick %d: heading changed again before the next cooldown", tick)
		}
	}
}

func TestWanderSteersAwayFromEdge(t *testing.T) {
	cfg := testConfig()
	self := SnakeView{ID: "bot", X: 60, Y: cfg.World.Height / 2, Length: 5}
	brain := Brain{Traits: Traits{FearDistance: 150}, NextWander: 1 << 30}

	p := Perception{Self: self, Heading: math.Pi, World: cfg.World}
	intent, _ := Decide(p, brain, cfg.Bots, cfg.Derived, rand.New(rand.NewSource(1)))
	if math.Abs(intent.Angle) > 1e-9 {
		t.Errorf("angle = %v, want 0 (toward the centre)", intent.Angle)
	}
}

func TestSampleTraitsInRange(t *testing.T) {
	bc := testConfig().Bots
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		tr := SampleTraits(bc, rng)
		if tr.Aggressiveness < bc.AggressivenessMin || tr.Aggressiveness > bc.AggressivenessMax {
			t.Fatalf("aggressiveness %v out of range", tr.Aggressiveness)
		}
		if tr.FearDistance < bc.FearMin || tr.FearDistance > bc.FearMax {
			t.Fatalf("fear distance %v out of range", tr.FearDistance)
		}
	}
}
