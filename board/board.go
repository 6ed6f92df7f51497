// Package board describes planar fiducial targets: single square markers and
// ChArUco boards, with the corner interpolation and refind steps that run
// after marker detection.
package board

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Quad holds the four image corners of a marker in detector order:
// top-left, top-right, bottom-right, bottom-left.
type Quad [4]r2.Point

// Points returns the corners as a slice.
func (q Quad) Points() []r2.Point {
	return []r2.Point{q[0], q[1], q[2], q[3]}
}

// Center returns the mean of the four corners.
func (q Quad) Center() r2.Point {
	return q[0].Add(q[1]).Add(q[2]).Add(q[3]).Mul(0.25)
}

// MarkerObjectPoints returns the corners of a square marker of side length
// centred on its own origin, in detector order, on the z=0 plane.
func MarkerObjectPoints(length float64) [4]r3.Vector {
	h := length / 2
	return [4]r3.Vector{
		{X: -h, Y: h},
		{X: h, Y: h},
		{X: h, Y: -h},
		{X: -h, Y: -h},
	}
}

// Marker is one marker placed on a board.
type Marker struct {
	ID      int
	Corners [4]r3.Vector
}

// neighbor links a chessboard corner to an adjacent marker corner.
type neighbor struct {
	marker int // index into Charuco.Markers
	corner int // index into Marker.Corners
}

// Charuco is a chessboard whose white squares carry ArUco markers. Markers
// are numbered from the top row (largest y) downwards; chessboard corners
// are numbered row by row from the bottom-left inner corner.
type Charuco struct {
	SquaresX     int
	SquaresY     int
	SquareLength float64
	MarkerLength float64

	Markers []Marker
	Corners []r3.Vector

	byID    map[int]int
	nearest [][]neighbor
}

// NewCharuco lays out a squaresX by squaresY ChArUco board.
func NewCharuco(squaresX, squaresY int, squareLength, markerLength float64) (*Charuco, error) {
	if squaresX < 2 || squaresY < 2 {
		return nil, fmt.Errorf("board needs at least 2x2 squares, got %dx%d", squaresX, squaresY)
	}
	if squareLength <= 0 || markerLength <= 0 {
		return nil, fmt.Errorf("square and marker lengths must be positive")
	}
	if markerLength >= squareLength {
		return nil, fmt.Errorf("marker length %g must be smaller than square length %g", markerLength, squareLength)
	}

	b := &Charuco{
		SquaresX:     squaresX,
		SquaresY:     squaresY,
		SquareLength: squareLength,
		MarkerLength: markerLength,
		byID:         make(map[int]int),
	}

	diff := (squareLength - markerLength) / 2
	nextID := 0
	for y := squaresY - 1; y >= 0; y-- {
		for x := 0; x < squaresX; x++ {
			if y%2 == x%2 {
				continue // black square
			}
			tl := r3.Vector{X: float64(x)*squareLength + diff, Y: float64(y)*squareLength + diff + markerLength}
			b.byID[nextID] = len(b.Markers)
			b.Markers = append(b.Markers, Marker{
				ID: nextID,
				Corners: [4]r3.Vector{
					tl,
					tl.Add(r3.Vector{X: markerLength}),
					tl.Add(r3.Vector{X: markerLength, Y: -markerLength}),
					tl.Add(r3.Vector{Y: -markerLength}),
				},
			})
			nextID++
		}
	}

	for y := 0; y < squaresY-1; y++ {
		for x := 0; x < squaresX-1; x++ {
			b.Corners = append(b.Corners, r3.Vector{
				X: float64(x+1) * squareLength,
				Y: float64(y+1) * squareLength,
			})
		}
	}

	b.nearest = b.nearestMarkers()
	return b, nil
}

// nearestMarkers finds, for every chessboard corner, the markers whose centres
// are closest to it and the corner of each that touches the chessboard corner.
func (b *Charuco) nearestMarkers() [][]neighbor {
	out := make([][]neighbor, len(b.Corners))
	tol := b.SquareLength * 1e-6

	for ci, c := range b.Corners {
		minDist := math.Inf(1)
		dists := make([]float64, len(b.Markers))
		for mi, m := range b.Markers {
			center := m.Corners[0].Add(m.Corners[2]).Mul(0.5)
			dists[mi] = center.Sub(c).Norm()
			minDist = math.Min(minDist, dists[mi])
		}

		for mi, m := range b.Markers {
			if dists[mi] > minDist+tol {
				continue
			}
			best, bestDist := 0, math.Inf(1)
			for k, mc := range m.Corners {
				if d := mc.Sub(c).Norm(); d < bestDist {
					best, bestDist = k, d
				}
			}
			out[ci] = append(out[ci], neighbor{marker: mi, corner: best})
		}
	}
	return out
}

// Marker returns the board marker with the given dictionary ID.
func (b *Charuco) Marker(id int) (Marker, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Marker{}, false
	}
	return b.Markers[i], true
}

// AdjacentMarkers returns the IDs of the markers adjacent to a chessboard corner.
func (b *Charuco) AdjacentMarkers(cornerID int) []int {
	if cornerID < 0 || cornerID >= len(b.nearest) {
		return nil
	}
	ids := make([]int, 0, len(b.nearest[cornerID]))
	for _, n := range b.nearest[cornerID] {
		ids = append(ids, b.Markers[n.marker].ID)
	}
	return ids
}

// AxisLength is the overlay axis length used for board poses.
func (b *Charuco) AxisLength() float64 {
	return 0.5 * float64(min(b.SquaresX, b.SquaresY)) * b.SquareLength
}

// ObjectPoints returns the board coordinates of the given chessboard corners.
func (b *Charuco) ObjectPoints(cornerIDs []int) []r3.Vector {
	out := make([]r3.Vector, len(cornerIDs))
	for i, id := range cornerIDs {
		out[i] = b.Corners[id]
	}
	return out
}

// EnoughForPose reports whether the chessboard corners constrain a pose: at
// least four of them, spanning more than one row and more than one column.
func (b *Charuco) EnoughForPose(cornerIDs []int) bool {
	if len(cornerIDs) < 4 {
		return false
	}
	cols := b.SquaresX - 1
	rows := make(map[int]struct{})
	columns := make(map[int]struct{})
	for _, id := range cornerIDs {
		rows[id/cols] = struct{}{}
		columns[id%cols] = struct{}{}
	}
	return len(rows) > 1 && len(columns) > 1
}
