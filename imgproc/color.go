package imgproc

import (
	"fmt"
	"image/color"
	"math"
)

type HSV struct {
	H uint32  // 0 <= H < 360
	S float64 // 0 <= S <= 1
	V float64 // 0 <= V <= 1
}

const (
	CW  = "cw"
	CCW = "ccw"
)

// Hue step between consecutive marker IDs, close to the golden angle so
// neighbouring IDs get clearly different colors.
const markerHueStep = 137

// Overlay colors.
var (
	MarkerBorderColor   = color.RGBA{0, 255, 0, 255}
	RejectedBorderColor = color.RGBA{255, 0, 100, 255}
	CharucoCornerColor  = color.RGBA{0, 0, 255, 255}
	AxisXColor          = color.RGBA{255, 0, 0, 255}
	AxisYColor          = color.RGBA{0, 255, 0, 255}
	AxisZColor          = color.RGBA{0, 0, 255, 255}
)

// Rotates the hue `H` by a number of `degrees` in the given `direction`. Direction is either `cw` or `ccw`
func (col *HSV) RotateHue(degrees uint32, direction string) error {
	d := degrees % 360
	switch direction {
	case CW:
		col.H = (col.H%360 + d) % 360
	case CCW:
		col.H = (col.H%360 + 360 - d) % 360
	default:
		return fmt.Errorf("unknown direction: %q", direction)
	}
	return nil
}

// Converts an HSV color to RGBA, where `A` is implicitly set to 255 (solid)
func (col HSV) RGBA() color.RGBA {
	h := float64(col.H % 360)
	c := col.V * col.S
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := col.V - c

	var rp, gp, bp float64 // R' G' B'
	switch {
	case h < 60:
		rp, gp, bp = c, x, 0
	case h < 120:
		rp, gp, bp = x, c, 0
	case h < 180:
		rp, gp, bp = 0, c, x
	case h < 240:
		rp, gp, bp = 0, x, c
	case h < 300:
		rp, gp, bp = x, 0, c
	default:
		rp, gp, bp = c, 0, x
	}

	r := uint8(math.Round((rp + m) * 255))
	g := uint8(math.Round((gp + m) * 255))
	b := uint8(math.Round((bp + m) * 255))

	return color.RGBA{r, g, b, 255}
}

// MarkerColor returns a stable label color for a marker ID.
func MarkerColor(id int) color.RGBA {
	hsv := HSV{H: 0, S: 1, V: 1}
	steps := uint32(id%360+360) % 360
	// CW never fails.
	_ = hsv.RotateHue(steps*markerHueStep, CW)
	return hsv.RGBA()
}
