// Package estimator sequences the post-detection steps of a frame: marker
// refinement against a board, chessboard corner interpolation and pose
// solving. It never sees pixels; detection happens upstream.
package estimator

import (
	"github.com/golang/geo/r2"

	"github.com/DaniruKun/aruco-relay/board"
	"github.com/DaniruKun/aruco-relay/pose"
)

// Detection is the output of the marker detector for one frame.
type Detection struct {
	Quads    []board.Quad
	IDs      []int
	Rejected []board.Quad
}

// Empty reports whether no marker was detected.
func (d Detection) Empty() bool {
	return len(d.IDs) == 0
}

// CornerRefiner moves interpolated chessboard corners onto sub-pixel
// saddle points of the frame they were found in.
type CornerRefiner interface {
	RefineCorners(corners []r2.Point) []r2.Point
}

// Result is everything the estimator learned about a frame.
type Result struct {
	Detection

	// Poses holds one pose per marker in single-marker mode, or the board
	// pose in board mode when ValidPose is set.
	Poses     []pose.Pose
	ValidPose bool

	CharucoCorners []r2.Point
	CharucoIDs     []int
	Recovered      int // rejected candidates promoted by the refind pass
}

// Estimator turns a detection into a Result.
type Estimator interface {
	Estimate(det Detection, refiner CornerRefiner) Result
}
