package game

import (
	"math/rand"

	"github.com/Fullann/Slither.io/internal/config"
)

// Death records a snake killed by running its head into another body.
type Death struct {
	VictimID string
	KillerID string // empty when nobody is credited
}

// Meal records a pellet eaten by a snake.
type Meal struct {
	SnakeID     string
	Food        *Food
	Replacement *Food // nil when the field is capped
	Score       int   // eater's score after the meal
}

// Collides reports whether a head at (hx,hy) with radius headR hits seg.
// The tolerance forgives near-tangent grazes.
func Collides(hx, hy, headR float64, seg Segment, tolerance float64) bool {
	reach := headR + seg.R - tolerance
	if reach <= 0 {
		return false
	}
	return distSq(hx, hy, seg.X, seg.Y) < reach*reach
}

// DetectCollisions tests every live snake's head against the segments indexed
// in grid, skipping its own body. The first hit wins. Each head is tested on
// its own, so two snakes meeting head-on can both die in the same tick.
func DetectCollisions(snakes []*Snake, grid *SpatialGrid, cc config.CollisionConfig) []Death {
	var deaths []Death
	var buf []BodyHit
	for _, s := range snakes {
		if !s.Alive || len(s.Segments) == 0 {
			continue
		}
		h := s.Head()
		buf = grid.NearbySegments(h.X, h.Y, 2*s.HeadRadius, s.ID, buf[:0])
		for _, hit := range buf {
			if Collides(h.X, h.Y, s.HeadRadius, hit.Seg, cc.OverlapTolerance) {
				deaths = append(deaths, Death{VictimID: s.ID, KillerID: hit.SnakeID})
				break
			}
		}
	}
	return deaths
}

// ConsumeFood eats every pellet touching the head of s and credits its value.
// reach is the largest pellet size in play.
func ConsumeFood(s *Snake, field *FoodField, reach float64) []Meal {
	if !s.Alive || len(s.Segments) == 0 {
		return nil
	}
	h := s.Head()
	var meals []Meal
	for _, fd := range field.Nearby(h.X, h.Y, s.HeadRadius+reach, nil) {
		r := s.HeadRadius + fd.Size
		if distSq(h.X, h.Y, fd.X, fd.Y) >= r*r {
			continue
		}
		eaten, repl, ok := field.Consume(fd.ID)
		if !ok {
			continue
		}
		s.Score += eaten.Value
		meals = append(meals, Meal{SnakeID: s.ID, Food: eaten, Replacement: repl, Score: s.Score})
	}
	return meals
}

// DropBody turns every DropStride-th segment of a dead snake into a pellet,
// jittered around the segment and tinted with the snake's colour. Drops stop
// once the field is full.
func DropBody(s *Snake, field *FoodField, cc config.CollisionConfig, fc config.FoodConfig, rng *rand.Rand) []*Food {
	var out []*Food
	for i := 0; i < len(s.Segments); i += cc.DropStride {
		seg := s.Segments[i]
		x := seg.X + (rng.Float64()*2-1)*cc.DropJitter
		y := seg.Y + (rng.Float64()*2-1)*cc.DropJitter
		size := fc.DeathMinSize + rng.Float64()*(fc.DeathMaxSize-fc.DeathMinSize)
		fd, ok := field.Spawn(x, y, FoodDeath, fc.DeathValue, size, s.Color)
		if !ok {
			break
		}
		out = append(out, fd)
	}
	return out
}

// maxFoodSize is the largest pellet the config can produce.
func maxFoodSize(fc config.FoodConfig) float64 {
	m := fc.MaxSize
	if fc.BoostSize > m {
		m = fc.BoostSize
	}
	if fc.DeathMaxSize > m {
		m = fc.DeathMaxSize
	}
	return m
}
