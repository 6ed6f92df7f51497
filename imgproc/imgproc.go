// Package imgproc is the pixel side of the relay: frame capture, marker
// detection, sub-pixel corner refinement and the preview overlays.
package imgproc

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/DaniruKun/aruco-relay/board"
	"github.com/DaniruKun/aruco-relay/calib"
	"github.com/DaniruKun/aruco-relay/estimator"
	"github.com/DaniruKun/aruco-relay/relay"
	"github.com/DaniruKun/aruco-relay/utils"
)

// FallbackError reports that the requested frame source could not be opened
// and camera 0 is used instead.
type FallbackError struct {
	Source string
	Err    error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("could not open %s, falling back to camera 0: %v", e.Source, e.Err)
}

func (e *FallbackError) Unwrap() error { return e.Err }

// OpenCapture opens the video file, or the camera when videoPath is empty.
// If that fails camera 0 is opened and returned together with a
// *FallbackError. fromVideo reports whether frames come from a file.
func OpenCapture(videoPath string, cameraID int) (capture *gocv.VideoCapture, fromVideo bool, err error) {
	source := fmt.Sprintf("camera %d", cameraID)
	if videoPath != "" {
		source = videoPath
		capture, err = gocv.VideoCaptureFile(videoPath)
		fromVideo = true
	} else {
		capture, err = gocv.VideoCaptureDevice(cameraID)
	}
	if err == nil && capture.IsOpened() {
		return capture, fromVideo, nil
	}
	if err == nil {
		err = errors.New("capture is not opened")
	}
	if capture != nil {
		capture.Close()
	}

	fallback, ferr := gocv.VideoCaptureDevice(0)
	if ferr != nil {
		return nil, false, fmt.Errorf("error opening %s: %w, camera 0 failed too: %v", source, err, ferr)
	}
	return fallback, false, &FallbackError{Source: source, Err: err}
}

// NewDetector builds a marker detector for a predefined dictionary with the
// thresholds of cfg.
func NewDetector(dictionaryID int, cfg calib.DetectorConfig) gocv.ArucoDetector {
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDictionaryCode(dictionaryID))

	params := gocv.NewArucoDetectorParameters()
	params.SetAdaptiveThreshWinSizeMin(cfg.AdaptiveThreshWinSizeMin)
	params.SetAdaptiveThreshWinSizeMax(cfg.AdaptiveThreshWinSizeMax)
	params.SetAdaptiveThreshWinSizeStep(cfg.AdaptiveThreshWinSizeStep)
	params.SetAdaptiveThreshConstant(cfg.AdaptiveThreshConstant)
	params.SetMinMarkerPerimeterRate(cfg.MinMarkerPerimeterRate)
	params.SetMaxMarkerPerimeterRate(cfg.MaxMarkerPerimeterRate)
	params.SetPolygonalApproxAccuracyRate(cfg.PolygonalApproxAccuracyRate)
	params.SetMinCornerDistanceRate(cfg.MinCornerDistanceRate)
	params.SetMinDistanceToBorder(cfg.MinDistanceToBorder)
	params.SetMinMarkerDistanceRate(cfg.MinMarkerDistanceRate)
	params.SetCornerRefinementMethod(cfg.CornerRefinementMethod)
	params.SetCornerRefinementWinSize(cfg.CornerRefinementWinSize)
	params.SetCornerRefinementMaxIterations(cfg.CornerRefinementMaxIterations)
	params.SetCornerRefinementMinAccuracy(cfg.CornerRefinementMinAccuracy)
	params.SetMarkerBorderBits(cfg.MarkerBorderBits)
	params.SetPerspectiveRemovePixelPerCell(cfg.PerspectiveRemovePixelPerCell)
	params.SetPerspectiveRemoveIgnoredMarginPerCell(cfg.PerspectiveRemoveIgnoredMarginPerCell)
	params.SetMaxErroneousBitsInBorderRate(cfg.MaxErroneousBitsInBorderRate)
	params.SetMinOtsuStdDev(cfg.MinOtsuStdDev)
	params.SetErrorCorrectionRate(cfg.ErrorCorrectionRate)

	return gocv.NewArucoDetectorWithParams(dict, params)
}

func toQuads(corners [][]gocv.Point2f) []board.Quad {
	quads := make([]board.Quad, 0, len(corners))
	for _, c := range corners {
		if len(c) != 4 {
			continue
		}
		var q board.Quad
		for i, p := range c {
			q[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		quads = append(quads, q)
	}
	return quads
}

func toPoint2f(quads []board.Quad) [][]gocv.Point2f {
	out := make([][]gocv.Point2f, len(quads))
	for i, q := range quads {
		out[i] = make([]gocv.Point2f, 4)
		for j, p := range q {
			out[i][j] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}
	}
	return out
}

func toImagePoint(p r2.Point) image.Point {
	return image.Point{X: int(p.X + 0.5), Y: int(p.Y + 0.5)}
}

// subpixRefiner moves chessboard corners onto the saddle points of a
// grayscale frame.
type subpixRefiner struct {
	gray gocv.Mat
}

func (s subpixRefiner) RefineCorners(corners []r2.Point) []r2.Point {
	if len(corners) == 0 || s.gray.Empty() {
		return corners
	}
	pts := gocv.NewMatWithSize(len(corners), 2, gocv.MatTypeCV32F)
	defer pts.Close()
	for i, c := range corners {
		pts.SetFloatAt(i, 0, float32(c.X))
		pts.SetFloatAt(i, 1, float32(c.Y))
	}

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 100, 0.01)
	gocv.CornerSubPix(s.gray, &pts, image.Pt(3, 3), image.Pt(-1, -1), criteria)

	out := make([]r2.Point, len(corners))
	for i := range corners {
		out[i] = r2.Point{X: float64(pts.GetFloatAt(i, 0)), Y: float64(pts.GetFloatAt(i, 1))}
	}
	return out
}

// Tracker implements relay.Vision over gocv frames.
type Tracker struct {
	cfg       Config
	setup     *relay.Setup
	logger    *slog.Logger
	fromVideo bool

	capture  *gocv.VideoCapture
	window   *gocv.Window
	detector gocv.ArucoDetector
	frame    gocv.Mat
	gray     gocv.Mat
}

// Open opens the frame source and the detector for a prepared run. A
// fallback to camera 0 is logged, not returned.
func Open(s *relay.Setup, cfg Config, logger *slog.Logger) (*Tracker, error) {
	capture, fromVideo, err := OpenCapture(cfg.VideoPath, cfg.CameraID)
	if err != nil {
		var fe *FallbackError
		if !errors.As(err, &fe) {
			return nil, err
		}
		logger.Warn("frame source fallback", "error", err)
	}

	t := &Tracker{
		cfg:       cfg,
		setup:     s,
		logger:    logger,
		fromVideo: fromVideo,
		capture:   capture,
		detector:  NewDetector(s.Options.DictionaryID, s.Detector),
		frame:     gocv.NewMat(),
		gray:      gocv.NewMat(),
	}
	if cfg.ShowGUI {
		name := cfg.WindowName
		if name == "" {
			name = "out"
		}
		t.window = gocv.NewWindow(name)
	}

	dict, _ := utils.DictionaryName(s.Options.DictionaryID)
	logger.Info("frame source opened", "video", fromVideo, "dictionary", dict, "gui", cfg.ShowGUI)
	return t, nil
}

// Next reads the next non-empty frame. The returned Mat is reused by the
// following call.
func (t *Tracker) Next() (gocv.Mat, bool) {
	for {
		if ok := t.capture.Read(&t.frame); !ok {
			return t.frame, false
		}
		if !t.frame.Empty() {
			return t.frame, true
		}
	}
}

// Process detects markers on frame and runs the estimator over them.
func (t *Tracker) Process(frame gocv.Mat) (estimator.Result, error) {
	corners, ids, rejected := t.detector.DetectMarkers(frame)
	quads := toQuads(corners)
	if len(quads) != len(ids) {
		return estimator.Result{}, fmt.Errorf("detector returned %d corner sets for %d ids", len(quads), len(ids))
	}
	det := estimator.Detection{
		Quads:    quads,
		IDs:      ids,
		Rejected: toQuads(rejected),
	}

	var refiner estimator.CornerRefiner
	if t.setup.Options.Mode == relay.ModeBoard && !det.Empty() {
		gocv.CvtColor(frame, &t.gray, gocv.ColorBGRToGray)
		refiner = subpixRefiner{gray: t.gray}
	}
	return t.setup.Estimator.Estimate(det, refiner), nil
}

// Render draws the overlays and shows the frame. It reports true when the
// user pressed escape.
func (t *Tracker) Render(frame gocv.Mat, res estimator.Result) bool {
	if t.window == nil {
		return false
	}
	t.drawOverlays(&frame, res)
	t.window.IMShow(frame)
	return t.window.WaitKey(waitTime(t.fromVideo)) == KeyEscape
}

func (t *Tracker) Close() error {
	if t.window != nil {
		t.window.Close()
	}
	t.detector.Close()
	t.gray.Close()
	t.frame.Close()
	return t.capture.Close()
}
