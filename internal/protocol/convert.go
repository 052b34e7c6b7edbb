package protocol

import (
	"math"

	"github.com/Fullann/Slither.io/internal/game"
)

// FromSnake converts a snake, keeping at most maxSegments segments
// (all of them when maxSegments < 1).
func FromSnake(s *game.Snake, maxSegments int) SnakeDTO {
	n := len(s.Segments)
	if maxSegments > 0 && n > maxSegments {
		n = maxSegments
	}
	segs := make([][2]float64, n)
	for i := 0; i < n; i++ {
		segs[i] = [2]float64{game.RoundTo1(s.Segments[i].X), game.RoundTo1(s.Segments[i].Y)}
	}
	dto := SnakeDTO{
		ID:       s.ID,
		Name:     s.Name,
		Color:    s.Color,
		Score:    s.Score,
		Length:   len(s.Segments),
		Angle:    math.Round(s.Angle*1000) / 1000,
		Width:    s.HeadRadius,
		Segments: segs,
	}
	if s.Boosting {
		dto.Boosting = 1
	}
	if s.Kind == game.KindBot {
		dto.Bot = 1
	}
	return dto
}

// FromSnakes converts a list of snakes.
func FromSnakes(snakes []*game.Snake, maxSegments int) []SnakeDTO {
	out := make([]SnakeDTO, len(snakes))
	for i, s := range snakes {
		out[i] = FromSnake(s, maxSegments)
	}
	return out
}

// FromFood converts a pellet to its wire form.
func FromFood(f *game.Food) FoodDTO {
	return FoodDTO{
		ID:    f.ID,
		X:     game.RoundTo1(f.X),
		Y:     game.RoundTo1(f.Y),
		Size:  game.RoundTo1(f.Size),
		Value: f.Value,
		Color: f.Color,
		Kind:  int(f.Kind),
	}
}

// FromFoods converts a list of pellets.
func FromFoods(items []*game.Food) []FoodDTO {
	out := make([]FoodDTO, len(items))
	for i, f := range items {
		out[i] = FromFood(f)
	}
	return out
}

// FromMinimap reduces every snake to a head dot.
func FromMinimap(snakes []*game.Snake) []MinimapDot {
	out := make([]MinimapDot, 0, len(snakes))
	for _, s := range snakes {
		if !s.Alive || len(s.Segments) == 0 {
			continue
		}
		h := s.Head()
		out = append(out, MinimapDot{X: game.RoundTo1(h.X), Y: game.RoundTo1(h.Y), Color: s.Color, Width: s.HeadRadius})
	}
	return out
}

// FromLeaderboard converts leaderboard rows.
func FromLeaderboard(entries []game.LeaderEntry) []LeaderEntry {
	out := make([]LeaderEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderEntry{ID: e.ID, Name: e.Name, Score: e.Score}
	}
	return out
}
