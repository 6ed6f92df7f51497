package estimator

import (
	"log/slog"

	"github.com/golang/geo/r3"

	"github.com/DaniruKun/aruco-relay/board"
	"github.com/DaniruKun/aruco-relay/pose"
)

// Single solves every detected marker independently.
type Single struct {
	MarkerLength float64      // side length in meters
	Camera       *pose.Camera // nil disables pose solving
	Logger       *slog.Logger
}

// AxisLength is the overlay axis length for single markers.
func (s *Single) AxisLength() float64 {
	return 0.5 * s.MarkerLength
}

func (s *Single) Estimate(det Detection, _ CornerRefiner) Result {
	res := Result{Detection: det}
	if det.Empty() || s.Camera == nil {
		return res
	}

	corners := board.MarkerObjectPoints(s.MarkerLength)
	objs := []r3.Vector{corners[0], corners[1], corners[2], corners[3]}

	res.Poses = make([]pose.Pose, 0, len(det.IDs))
	for i, id := range det.IDs {
		p, err := pose.SolvePlanar(*s.Camera, objs, det.Quads[i].Points())
		if err != nil {
			if s.Logger != nil {
				s.Logger.Debug("marker pose failed", "marker", id, "error", err)
			}
			continue
		}
		p.MarkerID = id
		res.Poses = append(res.Poses, p)
	}
	res.ValidPose = len(res.Poses) > 0
	return res
}
