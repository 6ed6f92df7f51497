// Package calib loads the camera calibration and detector tuning files
// written by OpenCV's FileStorage.
package calib

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/DaniruKun/aruco-relay/pose"
)

var (
	yamlDirective = regexp.MustCompile(`(?m)^%YAML[: ]1\.[0-9]+\s*$`)
	opencvTag     = regexp.MustCompile(`!!opencv-[a-z]+`)
)

// sanitize turns an OpenCV FileStorage document into plain YAML: the
// non-standard "%YAML:1.0" directive and the opencv type tags are dropped.
func sanitize(data []byte) []byte {
	data = yamlDirective.ReplaceAll(data, nil)
	data = opencvTag.ReplaceAll(data, nil)
	return bytes.TrimLeft(data, "\r\n")
}

func readDocument(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(sanitize(data), out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Matrix is an opencv-matrix node.
type Matrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Type string    `yaml:"dt"`
	Data []float64 `yaml:"data"`
}

func (m Matrix) validate(name string) error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("%s: invalid shape %dx%d", name, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%s: %dx%d matrix has %d values", name, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

// CameraCalibration is the content of a camera calibration file.
type CameraCalibration struct {
	CameraMatrix           Matrix `yaml:"camera_matrix"`
	DistortionCoefficients Matrix `yaml:"distortion_coefficients"`
	CameraResolution       string `yaml:"cameraResolution"`
	ImageWidth             int    `yaml:"image_width"`
	ImageHeight            int    `yaml:"image_height"`
}

// LoadCamera reads and validates a calibration file.
func LoadCamera(path string) (*CameraCalibration, error) {
	var c CameraCalibration
	if err := readDocument(path, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid camera calibration %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks the matrix shapes.
func (c *CameraCalibration) Validate() error {
	if err := c.CameraMatrix.validate("camera_matrix"); err != nil {
		return err
	}
	if c.CameraMatrix.Rows != 3 || c.CameraMatrix.Cols != 3 {
		return fmt.Errorf("camera_matrix must be 3x3, got %dx%d", c.CameraMatrix.Rows, c.CameraMatrix.Cols)
	}
	if len(c.DistortionCoefficients.Data) == 0 {
		return nil
	}
	return c.DistortionCoefficients.validate("distortion_coefficients")
}

// Camera converts the calibration into the pinhole model used for pose solving.
func (c *CameraCalibration) Camera() (pose.Camera, error) {
	var k [9]float64
	copy(k[:], c.CameraMatrix.Data)
	return pose.NewCamera(k, c.DistortionCoefficients.Data)
}
