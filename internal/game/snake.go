package game

import (
	"math"

	"github.com/Fullann/Slither.io/internal/config"
)

// Kind distinguishes human-driven snakes from bots.
type Kind uint8

const (
	KindHuman Kind = iota
	KindBot
)

func (k Kind) String() string {
	if k == KindBot {
		return "bot"
	}
	return "human"
}

// Segment is one body element. Index 0 of a chain is the head.
type Segment struct {
	X float64
	Y float64
	R float64
}

// Snake is a controllable creature, human or bot.
type Snake struct {
	ID     string
	Kind   Kind
	Name   string
	Color  string
	UserID int64 // account id, 0 for guests and bots
	Seq    uint64

	X           float64
	Y           float64
	Angle       float64 // current heading, radians
	TargetAngle float64 // desired heading, approached gradually
	Speed       float64
	HeadRadius  float64

	Score    int
	Kills    int
	Segments []Segment // index 0 = head

	WantBoost bool // boost intent from the controller
	Boosting  bool // boost actually applied this tick
	Alive     bool
	BornTick  uint64
}

// NewSnake creates a snake at (x,y) heading along angle with the
// shortest allowed chain trailing behind it.
func NewSnake(id string, kind Kind, name, color string, x, y, angle float64, sc config.SnakeConfig) Snake {
	n := TargetLength(0, sc)
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{
			X: x - float64(i)*sc.SegmentDistance*math.Cos(angle),
			Y: y - float64(i)*sc.SegmentDistance*math.Sin(angle),
			R: segmentRadius(i, sc),
		}
	}
	return Snake{
		ID:          id,
		Kind:        kind,
		Name:        name,
		Color:       color,
		X:           x,
		Y:           y,
		Angle:       angle,
		TargetAngle: angle,
		Speed:       sc.BaseSpeed,
		HeadRadius:  sc.HeadRadius,
		Segments:    segs,
		Alive:       true,
	}
}

// Head returns the head segment.
func (s *Snake) Head() Segment {
	return s.Segments[0]
}

// Length returns the number of segments.
func (s *Snake) Length() int {
	return len(s.Segments)
}

// CanBoost reports whether the chain is long enough to pay for a boost.
func (s *Snake) CanBoost(sc config.SnakeConfig) bool {
	return len(s.Segments) > sc.MinBoostLength
}

// SteerToward sets the desired heading toward a world point.
// Non-finite or coincident points are ignored.
func (s *Snake) SteerToward(x, y float64) {
	if !finite(x, y) || (x == s.X && y == s.Y) {
		return
	}
	s.TargetAngle = Bearing(s.X, s.Y, x, y)
}

// SteerAngle sets the desired heading directly. The integrator still turns
// toward it gradually.
func (s *Snake) SteerAngle(a float64) {
	if !finite(a) {
		return
	}
	s.TargetAngle = NormalizeAngle(a)
}

// InView reports whether any segment lies in the box of half extents
// halfW, halfH centred on (cx, cy).
func (s *Snake) InView(cx, cy, halfW, halfH float64) bool {
	for _, seg := range s.Segments {
		if seg.X >= cx-halfW && seg.X <= cx+halfW && seg.Y >= cy-halfH && seg.Y <= cy+halfH {
			return true
		}
	}
	return false
}

// TargetLength maps a score to a chain length:
// clamp(floor(score/ScorePerSegment)+BaseLength, MinLength, MaxLength).
func TargetLength(score int, sc config.SnakeConfig) int {
	if score < 0 {
		score = 0
	}
	n := score/sc.ScorePerSegment + sc.BaseLength
	if n < sc.MinLength {
		return sc.MinLength
	}
	if n > sc.MaxLength {
		return sc.MaxLength
	}
	return n
}

// segmentRadius tapers from the head radius toward the tail.
func segmentRadius(i int, sc config.SnakeConfig) float64 {
	r := sc.HeadRadius - float64(i)*sc.SegmentTaper
	if r < sc.MinSegmentRadius {
		return sc.MinSegmentRadius
	}
	return r
}
