package estimator

import (
	"log/slog"

	"github.com/DaniruKun/aruco-relay/board"
	"github.com/DaniruKun/aruco-relay/pose"
)

// Charuco estimates a single pose for a whole ChArUco board.
type Charuco struct {
	Board      *board.Charuco
	Camera     *pose.Camera // nil disables pose solving
	Refind     bool         // re-examine rejected candidates against the board
	RefindOpts board.RefindParams
	MinMarkers int // adjacent markers a chessboard corner needs
	Logger     *slog.Logger
}

func (c *Charuco) Estimate(det Detection, refiner CornerRefiner) Result {
	var recovered int
	if c.Refind {
		r := c.Board.Refind(det.Quads, det.IDs, det.Rejected, c.Camera, c.RefindOpts)
		det = Detection{Quads: r.Quads, IDs: r.IDs, Rejected: r.Rejected}
		recovered = r.Recovered
		if recovered > 0 && c.Logger != nil {
			c.Logger.Debug("refind recovered markers", "count", recovered)
		}
	}

	res := c.estimate(det, refiner)
	res.Recovered = recovered
	return res
}

func (c *Charuco) estimate(det Detection, refiner CornerRefiner) Result {
	res := Result{Detection: det}
	if det.Empty() {
		return res
	}

	minMarkers := c.MinMarkers
	if minMarkers == 0 {
		minMarkers = board.DefaultMinMarkers
	}
	corners, ids := c.Board.InterpolateCorners(det.Quads, det.IDs, minMarkers)
	if len(corners) > 0 && refiner != nil {
		corners = refiner.RefineCorners(corners)
	}
	res.CharucoCorners = corners
	res.CharucoIDs = ids

	if c.Camera == nil || !c.Board.EnoughForPose(ids) {
		return res
	}

	p, err := pose.SolvePlanar(*c.Camera, c.Board.ObjectPoints(ids), corners)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Debug("board pose failed", "corners", len(ids), "error", err)
		}
		return res
	}
	res.Poses = []pose.Pose{p}
	res.ValidPose = true
	return res
}
