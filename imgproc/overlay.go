package imgproc

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"

	"github.com/DaniruKun/aruco-relay/board"
	"github.com/DaniruKun/aruco-relay/estimator"
	"github.com/DaniruKun/aruco-relay/pose"
)

// scalar converts c to a BGR scalar.
func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

func (t *Tracker) drawOverlays(img *gocv.Mat, res estimator.Result) {
	if len(res.IDs) > 0 {
		gocv.ArucoDrawDetectedMarkers(*img, toPoint2f(res.Quads), res.IDs, scalar(MarkerBorderColor))
	}
	if t.cfg.ShowRejected && len(res.Rejected) > 0 {
		for _, q := range res.Rejected {
			drawQuad(img, q, RejectedBorderColor)
		}
	}
	drawCharucoCorners(img, res)

	cam := t.setup.Camera
	if cam == nil {
		return
	}
	for _, p := range res.Poses {
		drawAxis(img, *cam, p, t.setup.AxisLength)
	}
}

func drawQuad(img *gocv.Mat, q board.Quad, c color.RGBA) {
	for i := range q {
		gocv.Line(img, toImagePoint(q[i]), toImagePoint(q[(i+1)%len(q)]), c, 1)
	}
}

func drawCharucoCorners(img *gocv.Mat, res estimator.Result) {
	for i, c := range res.CharucoCorners {
		pt := toImagePoint(c)
		gocv.Rectangle(img, image.Rect(pt.X-3, pt.Y-3, pt.X+3, pt.Y+3), CharucoCornerColor, 1)
		if i < len(res.CharucoIDs) {
			label := fmt.Sprintf("id=%d", res.CharucoIDs[i])
			gocv.PutText(img, label, pt.Add(image.Pt(5, -5)), gocv.FontHersheySimplex, 0.5, CharucoCornerColor, 2)
		}
	}
}

// drawAxis draws the x, y and z axes of p, each length long.
func drawAxis(img *gocv.Mat, cam pose.Camera, p pose.Pose, length float64) {
	pts := cam.ProjectPoints([]r3.Vector{
		{},
		{X: length},
		{Y: length},
		{Z: length},
	}, p)

	origin := toImagePoint(pts[0])
	gocv.Line(img, origin, toImagePoint(pts[1]), AxisXColor, 3)
	gocv.Line(img, origin, toImagePoint(pts[2]), AxisYColor, 3)
	gocv.Line(img, origin, toImagePoint(pts[3]), AxisZColor, 3)
	if p.MarkerID >= 0 {
		gocv.Circle(img, origin, 4, MarkerColor(p.MarkerID), -1)
	}
}
