package timeline

import (
	"time"
)

// Scale is the date-to-pixel mapping shared by bars and dependency
// lines. Computing line endpoints from the same mapping that positions
// the bars removes any dependency on rendered layout.
type Scale struct {
	Origin       time.Time
	PixelsPerDay float64
}

func (s Scale) X(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return t.Sub(s.Origin).Hours() / 24 * s.PixelsPerDay
}

// Line connects a parent bar's end to a child bar's start.
type Line struct {
	FromKey string  `json:"fromKey"`
	ToKey   string  `json:"toKey"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
}

// ProjectLines computes the parent-child connector lines for a row set.
// It is a pure projection: a row whose parent is missing, collapsed away,
// or undated simply yields no line. It never fails.
func ProjectLines(rows []Row, scale Scale, rowHeight float64) []Line {
	rowAt := make(map[string]int, len(rows))
	for i, row := range rows {
		rowAt[row.Key] = i
	}

	lines := make([]Line, 0, len(rows))
	for i, row := range rows {
		if row.ParentKey == "" {
			continue
		}
		parentIdx, ok := rowAt[row.ParentKey]
		if !ok {
			continue
		}
		parent := rows[parentIdx]
		if parent.End.IsZero() || row.Start.IsZero() {
			continue
		}
		lines = append(lines, Line{
			FromKey: parent.Key,
			ToKey:   row.Key,
			X1:      scale.X(parent.End),
			Y1:      (float64(parentIdx) + 0.5) * rowHeight,
			X2:      scale.X(row.Start),
			Y2:      (float64(i) + 0.5) * rowHeight,
		})
	}
	return lines
}
