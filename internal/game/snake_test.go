package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Fullann/Slither.io/internal/config"
)

func testConfig() *config.Config {
	return config.Default()
}

func TestTargetLength(t *testing.T) {
	sc := testConfig().Snake
	tests := []struct {
		score int
		want  int
	}{
		{-10, sc.BaseLength},
		{0, sc.BaseLength},
		{4, sc.BaseLength},
		{5, sc.BaseLength + 1},
		{52, sc.BaseLength + 10},
		{1 << 20, sc.MaxLength},
	}
	for _, tt := range tests {
		if got := TargetLength(tt.score, sc); got != tt.want {
			t.Errorf("TargetLength(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestNewSnakeShape(t *testing.T) {
	sc := testConfig().Snake
	s := NewSnake("s1", KindHuman, "a", "#fff", 500, 500, 0, sc)

	if s.Length() != TargetLength(0, sc) {
		t.Fatalf("length = %d, want %d", s.Length(), TargetLength(0, sc))
	}
	if h := s.Head(); h.X != 500 || h.Y != 500 {
		t.Errorf("head = (%v,%v), want (500,500)", h.X, h.Y)
	}
	if s.Segments[0].R != sc.HeadRadius {
		t.Errorf("head radius = %v, want %v", s.Segments[0].R, sc.HeadRadius)
	}
	for i := 1; i < s.Length(); i++ {
		if s.Segments[i].X >= s.Segments[i-1].X {
			t.Errorf("segment %d is not behind its predecessor", i)
		}
	}
}

func TestSteerIgnoresBadInput(t *testing.T) {
	sc := testConfig().Snake
	s := NewSnake("s1", KindHuman, "a", "#fff", 500, 500, 0, sc)

	s.SteerToward(math.NaN(), 10)
	s.SteerToward(500, 500)
	s.SteerAngle(math.Inf(1))
	if s.TargetAngle != 0 {
		t.Fatalf("TargetAngle = %v after invalid input, want 0", s.TargetAngle)
	}

	s.SteerToward(500, 600)
	if math.Abs(s.TargetAngle-math.Pi/2) > 1e-9 {
		t.Errorf("TargetAngle = %v, want π/2", s.TargetAngle)
	}
}

func TestIntegrateLengthAndSpacing(t *testing.T) {
	cfg := testConfig()
	sc := cfg.Snake
	rng := rand.New(rand.NewSource(7))
	s := NewSnake("s1", KindHuman, "a", "#fff", 2000, 2000, 0, sc)

	for tick := 0; tick < 2000; tick++ {
		switch {
		case tick%7 == 0:
			s.Score += rng.Intn(40)
		case tick%11 == 0:
			s.Score -= rng.Intn(30)
			if s.Score < 0 {
				s.Score = 0
			}
		}
		s.WantBoost = tick%3 == 0
		s.SteerAngle(rng.Float64()*2*math.Pi - math.Pi)

		Integrate(&s, sc, cfg.World, rng)

		if want := TargetLength(s.Score, sc); s.Length() != want {
			t.Fatalf("tick %d: length = %d, want %d (score %d)", tick, s.Length(), want, s.Score)
		}
		if h := s.Head(); h.X != s.X || h.Y != s.Y {
			t.Fatalf("tick %d: head segment not at snake position", tick)
		}
		for i := 1; i < s.Length(); i++ {
			a, b := s.Segments[i-1], s.Segments[i]
			if d := Distance(a.X, a.Y, b.X, b.Y); d > sc.SegmentDistance+1e-6 {
				t.Fatalf("tick %d: gap %d = %v exceeds %v", tick, i, d, sc.SegmentDistance)
			}
		}
		m := cfg.World.Margin
		if s.X < m || s.X > cfg.World.Width-m || s.Y < m || s.Y > cfg.World.Height-m {
			t.Fatalf("tick %d: position (%v,%v) left the world", tick, s.X, s.Y)
		}
	}
}

func TestBoostNeedsLength(t *testing.T) {
	cfg := testConfig()
	sc := cfg.Snake
	rng := rand.New(rand.NewSource(1))

	s := NewSnake("s1", KindHuman, "a", "#fff", 2000, 2000, 0, sc)
	if s.Length() > sc.MinBoostLength {
		t.Fatalf("fresh snake too long for this test: %d", s.Length())
	}
	s.WantBoost = true
	for i := 0; i < 50; i++ {
		Integrate(&s, sc, cfg.World, rng)
		if s.Boosting || s.Speed != sc.BaseSpeed {
			t.Fatalf("boost applied at length %d", s.Length())
		}
	}

	s.Score = 100
	Integrate(&s, sc, cfg.World, rng)
	if !s.Boosting || s.Speed != sc.BoostSpeed {
		t.Fatalf("boost not applied at length %d", s.Length())
	}
}

func TestBoostEndsWhenShedReachesThreshold(t *testing.T) {
	cfg := testConfig()
	sc := cfg.Snake
	sc.BoostShedChance = 1
	rng := rand.New(rand.NewSource(1))

	s := NewSnake("s1", KindHuman, "a", "#fff", 2000, 2000, 0, sc)
	s.Score = 5
	Integrate(&s, sc, cfg.World, rng)
	if !s.CanBoost(sc) {
		t.Fatalf("length %d should allow boosting", s.Length())
	}

	s.WantBoost = true
	if _, shed := Integrate(&s, sc, cfg.World, rng); !shed {
		t.Fatal("expected a shed segment")
	}
	if s.Length() > sc.MinBoostLength {
		t.Fatalf("length %d still above threshold %d", s.Length(), sc.MinBoostLength)
	}
	if s.Boosting || s.Speed != sc.BaseSpeed {
		t.Errorf("Boosting=%v speed=%v at length %d", s.Boosting, s.Speed, s.Length())
	}
}

func TestBoostShedsTail(t *testing.T) {
	cfg := testConfig()
	sc := cfg.Snake
	sc.BoostShedChance = 1
	rng := rand.New(rand.NewSource(1))

	s := NewSnake("s1", KindHuman, "a", "#fff", 2000, 2000, 0, sc)
	s.Score = 50
	s.WantBoost = true
	Integrate(&s, sc, cfg.World, rng)

	_, shed := Integrate(&s, sc, cfg.World, rng)
	if !shed {
		t.Fatal("expected a shed segment")
	}
	if s.Score != 48 {
		t.Errorf("score = %d, want 48", s.Score)
	}
}

func TestTurnIsGradual(t *testing.T) {
	cfg := testConfig()
	sc := cfg.Snake
	rng := rand.New(rand.NewSource(1))

	s := NewSnake("s1", KindHuman, "a", "#fff", 2000, 2000, 0, sc)
	s.SteerAngle(math.Pi / 2)
	Integrate(&s, sc, cfg.World, rng)

	if s.Angle <= 0 || s.Angle > sc.MaxTurn+1e-9 {
		t.Fatalf("angle after one tick = %v, want in (0, %v]", s.Angle, sc.MaxTurn)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-5 * math.Pi / 2, -math.Pi / 2},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInView(t *testing.T) {
	sc := testConfig().Snake
	s := NewSnake("s1", KindHuman, "a", "#fff", 1000, 1000, 0, sc)

	tests := []struct {
		name   string
		cx, cy float64
		want   bool
	}{
		{"centred on head", 1000, 1000, true},
		{"tail reaches into box", 880, 1000, true},
		{"far away", 3000, 3000, false},
		{"just outside", 1000, 1150, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InView(tt.cx, tt.cy, 100, 100); got != tt.want {
				t.Errorf("InView(%v, %v) = %v, want %v", tt.cx, tt.cy, got, tt.want)
			}
		})
	}
}
