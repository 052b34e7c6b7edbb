package game

import (
	"math"
	"math/rand"

	"github.com/Fullann/Slither.io/internal/config"
)

// Traits are a bot's fixed personality, sampled once at spawn.
type Traits struct {
	Aggressiveness float64 // chance per decision to go hunting
	FearDistance   float64 // bigger snakes closer than this are fled from
}

// SampleTraits draws a personality from the configured ranges.
func SampleTraits(bc config.BotsConfig, rng *rand.Rand) Traits {
	return Traits{
		Aggressiveness: bc.AggressivenessMin + rng.Float64()*(bc.AggressivenessMax-bc.AggressivenessMin),
		FearDistance:   bc.FearMin + rng.Float64()*(bc.FearMax-bc.FearMin),
	}
}

// Mode is the behaviour chosen on a bot's last decision.
type Mode uint8

const (
	ModeWander Mode = iota
	ModeFlee
	ModeForage
	ModeHunt
)

func (m Mode) String() string {
	switch m {
	case ModeFlee:
		return "flee"
	case ModeForage:
		return "forage"
	case ModeHunt:
		return "hunt"
	default:
		return "wander"
	}
}

// Brain is the controller state stored alongside a bot's snake.
type Brain struct {
	Traits     Traits
	Mode       Mode
	NextWander uint64 // tick from which the wander heading may change again
	Slot       int    // decision phase within the bot stride
}

// NewBrain creates controller state for a bot spawned at tick.
func NewBrain(t Traits, tick uint64, slot int, d config.DerivedConfig, rng *rand.Rand) Brain {
	return Brain{
		Traits:     t,
		NextWander: tick + wanderCooldown(d, rng),
		Slot:       slot,
	}
}

// SnakeView is a read-only summary of a snake used for sensing.
type SnakeView struct {
	ID     string
	X      float64
	Y      float64
	Length int
}

// Perception is what a bot senses for one decision.
type Perception struct {
	Tick     uint64
	Self     SnakeView
	Heading  float64     // the bot's current desired heading
	Others   []SnakeView // every live snake; Self is skipped by id
	Food     *Food       // nearest pellet within the sense radius, or nil
	FoodDist float64
	World    config.WorldConfig
}

// Intent is the steering output of a decision.
type Intent struct {
	Angle float64
	Boost bool
	Mode  Mode
}

// Decide picks a heading and boost intent. Priority is strict: flee, forage,
// hunt, wander. It does not touch the world; the updated brain is returned.
func Decide(p Perception, b Brain, bc config.BotsConfig, d config.DerivedConfig, rng *rand.Rand) (Intent, Brain) {
	self := p.Self

	if threat, ok := nearestThreat(p, b.Traits.FearDistance); ok {
		b.Mode = ModeFlee
		return Intent{
			Angle: NormalizeAngle(Bearing(self.X, self.Y, threat.X, threat.Y) + math.Pi),
			Boost: rng.Float64() < bc.FleeBoostChance,
			Mode:  ModeFlee,
		}, b
	}

	if p.Food != nil && p.FoodDist <= bc.SenseRadius {
		b.Mode = ModeForage
		return Intent{
			Angle: Bearing(self.X, self.Y, p.Food.X, p.Food.Y),
			Mode:  ModeForage,
		}, b
	}

	if self.Length > bc.HuntMinLength && rng.Float64() < b.Traits.Aggressiveness {
		if prey, dist, ok := nearestPrey(p, bc); ok {
			b.Mode = ModeHunt
			return Intent{
				Angle: Bearing(self.X, self.Y, prey.X, prey.Y),
				Boost: dist > bc.HuntBoostDistance,
				Mode:  ModeHunt,
			}, b
		}
	}

	b.Mode = ModeWander
	angle := p.Heading
	if nearEdge(self, p.World, bc.EdgeMargin) {
		angle = Bearing(self.X, self.Y, p.World.Width/2, p.World.Height/2)
	} else if p.Tick >= b.NextWander {
		angle = NormalizeAngle(angle + (rng.Float64()-0.5)*bc.WanderDelta)
		b.NextWander = p.Tick + wanderCooldown(d, rng)
	}
	return Intent{
		Angle: angle,
		Boost: rng.Float64() < bc.WanderBoostChance,
		Mode:  ModeWander,
	}, b
}

// nearestThreat finds the closest longer snake within fear distance.
func nearestThreat(p Perception, fear float64) (SnakeView, bool) {
	var best SnakeView
	bestD2 := fear * fear
	found := false
	for _, o := range p.Others {
		if o.ID == p.Self.ID || o.Length <= p.Self.Length {
			continue
		}
		if d2 := distSq(p.Self.X, p.Self.Y, o.X, o.Y); d2 < bestD2 {
			best, bestD2, found = o, d2, true
		}
	}
	return best, found
}

// nearestPrey finds the closest snake short enough to hunt.
func nearestPrey(p Perception, bc config.BotsConfig) (SnakeView, float64, bool) {
	var best SnakeView
	bestD2 := bc.HuntRadius * bc.HuntRadius
	found := false
	limit := float64(p.Self.Length) * bc.HuntRatio
	for _, o := range p.Others {
		if o.ID == p.Self.ID || float64(o.Length) >= limit {
			continue
		}
		if d2 := distSq(p.Self.X, p.Self.Y, o.X, o.Y); d2 < bestD2 {
			best, bestD2, found = o, d2, true
		}
	}
	return best, math.Sqrt(bestD2), found
}

func nearEdge(s SnakeView, wc config.WorldConfig, margin float64) bool {
	return s.X < margin || s.Y < margin || s.X > wc.Width-margin || s.Y > wc.Height-margin
}

func wanderCooldown(d config.DerivedConfig, rng *rand.Rand) uint64 {
	span := d.WanderMaxTicks - d.WanderMinTicks
	if span <= 0 {
		return uint64(d.WanderMinTicks)
	}
	return uint64(d.WanderMinTicks + rng.Intn(span+1))
}
