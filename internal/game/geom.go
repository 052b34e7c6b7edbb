package game

import "math"

// Distance returns the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

func distSq(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// NormalizeAngle wraps an angle into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// LerpAngle moves from toward to by fraction t along the shortest arc.
func LerpAngle(from, to, t float64) float64 {
	return NormalizeAngle(from + NormalizeAngle(to-from)*t)
}

// Bearing returns the heading from (x1,y1) toward (x2,y2).
func Bearing(x1, y1, x2, y2 float64) float64 {
	return math.Atan2(y2-y1, x2-x1)
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// RoundTo1 rounds to one decimal place to save protocol bytes.
func RoundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// cellKey identifies a grid cell.
type cellKey struct {
	cx, cy int
}

func keyFor(x, y, cellSize float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x / cellSize)),
		cy: int(math.Floor(y / cellSize)),
	}
}

// cellRange returns the inclusive cell bounds covering a circle.
func cellRange(x, y, radius, cellSize float64) (minCX, maxCX, minCY, maxCY int) {
	minCX = int(math.Floor((x - radius) / cellSize))
	maxCX = int(math.Floor((x + radius) / cellSize))
	minCY = int(math.Floor((y - radius) / cellSize))
	maxCY = int(math.Floor((y + radius) / cellSize))
	return
}
