package board

import (
	"github.com/golang/geo/r2"

	"github.com/DaniruKun/aruco-relay/pose"
)

// DefaultMinMarkers is the number of detected adjacent markers a chessboard
// corner needs before it is interpolated.
const DefaultMinMarkers = 2

// InterpolateCorners estimates the image position of every chessboard corner
// from the local homographies of its detected neighbouring markers. Markers
// that do not belong to the board are ignored. Corners are returned in
// ascending ID order.
func (b *Charuco) InterpolateCorners(quads []Quad, ids []int, minMarkers int) ([]r2.Point, []int) {
	if minMarkers < 1 {
		minMarkers = 1
	}

	homographies := make(map[int]pose.Homography, len(ids))
	for i, id := range ids {
		idx, ok := b.byID[id]
		if !ok {
			continue
		}
		m := b.Markers[idx]
		plane := make([]r2.Point, 4)
		for k, c := range m.Corners {
			plane[k] = r2.Point{X: c.X, Y: c.Y}
		}
		h, err := pose.FindHomography(plane, quads[i].Points())
		if err != nil {
			continue
		}
		homographies[idx] = h
	}
	if len(homographies) == 0 {
		return nil, nil
	}

	var corners []r2.Point
	var cornerIDs []int
	for ci, c := range b.Corners {
		var sum r2.Point
		var n int
		for _, nb := range b.nearest[ci] {
			h, ok := homographies[nb.marker]
			if !ok {
				continue
			}
			sum = sum.Add(h.Apply(r2.Point{X: c.X, Y: c.Y}))
			n++
		}
		if n < minMarkers {
			continue
		}
		corners = append(corners, sum.Mul(1/float64(n)))
		cornerIDs = append(cornerIDs, ci)
	}
	return corners, cornerIDs
}
