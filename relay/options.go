// Package relay assembles a producer run (calibration, estimator, frame
// loop, pose link) and the consumer loop on the other end of the link.
package relay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/DaniruKun/aruco-relay/board"
	"github.com/DaniruKun/aruco-relay/calib"
	"github.com/DaniruKun/aruco-relay/estimator"
	"github.com/DaniruKun/aruco-relay/pose"
	"github.com/DaniruKun/aruco-relay/publish"
	"github.com/DaniruKun/aruco-relay/transport"
	"github.com/DaniruKun/aruco-relay/utils"
)

// ErrConfig marks errors caused by flags or parameter files. They are
// reported before any device or socket is opened.
var ErrConfig = errors.New("configuration error")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Mode selects what is tracked.
type Mode string

const (
	ModeSingle Mode = "single" // every marker independently
	ModeBoard  Mode = "board"  // one ChArUco board
)

// Options are the settings of a producer run.
type Options struct {
	Mode         Mode
	DictionaryID int

	VideoPath string // input video file, camera when empty
	CameraID  int

	CalibrationPath    string // pose solving is skipped when empty
	DetectorParamsPath string

	MarkerLength float64 // meters
	SquaresX     int     // board mode
	SquaresY     int     // board mode
	SquareLength float64 // board mode, meters

	Endpoint     string
	ShowRejected bool
	Refind       bool

	Every      int
	MaxPerTick int
	Dial       transport.DialOptions
}

// Validate checks the options that do not need any file access.
func (o Options) Validate() error {
	if _, err := utils.DictionaryName(o.DictionaryID); err != nil {
		return configError("%v", err)
	}
	if o.MarkerLength <= 0 {
		return configError("marker length must be positive, got %g", o.MarkerLength)
	}
	switch o.Mode {
	case ModeSingle:
	case ModeBoard:
		if o.SquaresX < 2 || o.SquaresY < 2 {
			return configError("board needs at least 2x2 squares, got %dx%d", o.SquaresX, o.SquaresY)
		}
		if o.SquareLength <= o.MarkerLength {
			return configError("square length %g must exceed marker length %g", o.SquareLength, o.MarkerLength)
		}
	default:
		return configError("unknown mode %q", o.Mode)
	}
	if o.Endpoint == "" {
		return configError("no endpoint given")
	}
	if err := transport.ValidateEndpoint(o.Endpoint); err != nil {
		return configError("%v", err)
	}
	if o.Every <= 0 {
		return configError("publish cadence must be positive, got %d", o.Every)
	}
	return nil
}

// Setup is everything loaded from the options before the run starts.
type Setup struct {
	Options     Options
	Calibration *calib.CameraCalibration
	Camera      *pose.Camera
	Detector    calib.DetectorConfig
	Estimator   estimator.Estimator
	AxisLength  float64
}

// Prepare validates the options and loads the parameter files.
func Prepare(o Options, logger *slog.Logger) (*Setup, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	s := &Setup{Options: o, Detector: calib.DefaultDetectorConfig()}

	if o.CalibrationPath != "" {
		c, err := calib.LoadCamera(utils.ExpandPath(o.CalibrationPath))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid camera file: %w", ErrConfig, err)
		}
		cam, err := c.Camera()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid camera file: %w", ErrConfig, err)
		}
		s.Calibration = c
		s.Camera = &cam
		logger.Info("camera parameters loaded",
			"path", o.CalibrationPath,
			"resolution", c.CameraResolution,
			"distortion_coefficients", len(cam.Dist))
	} else {
		logger.Warn("no camera parameters given, pose estimation disabled")
	}

	if o.DetectorParamsPath != "" {
		d, err := calib.LoadDetector(utils.ExpandPath(o.DetectorParamsPath))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid detector parameters file: %w", ErrConfig, err)
		}
		s.Detector = d
	}

	switch o.Mode {
	case ModeSingle:
		s.Detector.CornerRefinementMethod = calib.CornerRefineSubpix
		single := &estimator.Single{MarkerLength: o.MarkerLength, Camera: s.Camera, Logger: logger}
		s.Estimator = single
		s.AxisLength = single.AxisLength()
	case ModeBoard:
		b, err := board.NewCharuco(o.SquaresX, o.SquaresY, o.SquareLength, o.MarkerLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		s.Estimator = &estimator.Charuco{
			Board:      b,
			Camera:     s.Camera,
			Refind:     o.Refind,
			RefindOpts: board.DefaultRefindParams(),
			MinMarkers: board.DefaultMinMarkers,
			Logger:     logger,
		}
		s.AxisLength = b.AxisLength()
	}
	return s, nil
}

// PublisherOptions returns the publisher settings of the run.
func (s *Setup) PublisherOptions(logger *slog.Logger) []publish.Option {
	return []publish.Option{
		publish.WithEvery(s.Options.Every),
		publish.WithMaxPerTick(s.Options.MaxPerTick),
		publish.WithLogger(logger),
	}
}
