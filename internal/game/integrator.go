package game

import (
	"math"
	"math/rand"

	"github.com/Fullann/Slither.io/internal/config"
)

// Integrate advances a live snake by one tick: turn, move, clamp to the world,
// grow a new head, respring the chain and resize it to match the score.
//
// While boosting, the snake sheds its tail with probability BoostShedChance and
// loses one point of score. The shed segment is returned so the caller can drop
// food where it was.
func Integrate(s *Snake, sc config.SnakeConfig, wc config.WorldConfig, rng *rand.Rand) (shed Segment, didShed bool) {
	if !s.Alive || len(s.Segments) == 0 {
		return Segment{}, false
	}

	s.Angle = turnToward(s.Angle, s.TargetAngle, len(s.Segments), sc)

	s.Boosting = s.WantBoost && s.CanBoost(sc)
	if s.Boosting {
		s.Speed = sc.BoostSpeed
	} else {
		s.Speed = sc.BaseSpeed
	}

	m := wc.Margin
	s.X = Clamp(s.X+s.Speed*math.Cos(s.Angle), m, wc.Width-m)
	s.Y = Clamp(s.Y+s.Speed*math.Sin(s.Angle), m, wc.Height-m)

	// Unshift the new head
	s.Segments = append(s.Segments, Segment{})
	copy(s.Segments[1:], s.Segments[:len(s.Segments)-1])
	s.Segments[0] = Segment{X: s.X, Y: s.Y}
	respring(s.Segments, sc.SegmentDistance)

	if s.Boosting && rng.Float64() < sc.BoostShedChance {
		last := len(s.Segments) - 1
		shed, didShed = s.Segments[last], true
		s.Segments = s.Segments[:last]
		if s.Score > 0 {
			s.Score--
		}
	}

	resize(s, TargetLength(s.Score, sc))
	for i := range s.Segments {
		s.Segments[i].R = segmentRadius(i, sc)
	}
	// A shed can take the snake back to the boost threshold.
	if s.Boosting && !s.CanBoost(sc) {
		s.Boosting = false
		s.Speed = sc.BaseSpeed
	}
	return shed, didShed
}

// turnToward moves angle toward target by a fraction of the remaining arc,
// never more than the length-scaled turn limit.
func turnToward(angle, target float64, length int, sc config.SnakeConfig) float64 {
	maxTurn := sc.MaxTurn / (1 + float64(length)*sc.TurnLengthFactor)
	step := Clamp(NormalizeAngle(target-angle)*sc.TurnLerp, -maxTurn, maxTurn)
	return NormalizeAngle(angle + step)
}

// respring pulls every segment toward its predecessor so that no two
// consecutive centres are farther apart than dist.
func respring(segs []Segment, dist float64) {
	for i := 1; i < len(segs); i++ {
		prev := segs[i-1]
		cur := &segs[i]
		d := Distance(prev.X, prev.Y, cur.X, cur.Y)
		if d > dist {
			k := dist / d
			cur.X = prev.X + (cur.X-prev.X)*k
			cur.Y = prev.Y + (cur.Y-prev.Y)*k
		}
	}
}

// resize truncates the chain or extends it with copies of the tail.
func resize(s *Snake, n int) {
	if len(s.Segments) >= n {
		s.Segments = s.Segments[:n]
		return
	}
	tail := s.Segments[len(s.Segments)-1]
	for len(s.Segments) < n {
		s.Segments = append(s.Segments, tail)
	}
}
