package game

// BodyHit is a segment found by a grid query.
type BodyHit struct {
	SnakeID string
	Index   int
	Seg     Segment
}

// SpatialGrid is a hash grid over snake body segments, rebuilt every tick.
type SpatialGrid struct {
	cells    map[cellKey][]BodyHit
	cellSize float64
}

// NewSpatialGrid creates an empty grid.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cells:    make(map[cellKey][]BodyHit),
		cellSize: cellSize,
	}
}

// Clear empties every cell, keeping allocated slices for reuse.
func (g *SpatialGrid) Clear() {
	for k, cell := range g.cells {
		if len(cell) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = cell[:0]
	}
}

// InsertSnakeBody indexes the first prefix segments of s, head included.
// A prefix below one indexes the whole chain.
func (g *SpatialGrid) InsertSnakeBody(s *Snake, prefix int) {
	n := len(s.Segments)
	if prefix > 0 && prefix < n {
		n = prefix
	}
	for i := 0; i < n; i++ {
		seg := s.Segments[i]
		k := keyFor(seg.X, seg.Y, g.cellSize)
		g.cells[k] = append(g.cells[k], BodyHit{SnakeID: s.ID, Index: i, Seg: seg})
	}
}

// NearbySegments appends to buf the indexed segments within radius of (x,y),
// skipping those that belong to excludeID. Results come in cell order, then
// insertion order.
func (g *SpatialGrid) NearbySegments(x, y, radius float64, excludeID string, buf []BodyHit) []BodyHit {
	minCX, maxCX, minCY, maxCY := cellRange(x, y, radius, g.cellSize)
	r2 := radius * radius
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, e := range g.cells[cellKey{cx, cy}] {
				if e.SnakeID == excludeID {
					continue
				}
				if distSq(x, y, e.Seg.X, e.Seg.Y) <= r2 {
					buf = append(buf, e)
				}
			}
		}
	}
	return buf
}
