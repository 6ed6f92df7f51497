package imgproc

import (
	"fmt"
	"image/color"
	"testing"
)

func TestRotateHue(t *testing.T) {
	hsv := HSV{H: 0, S: 1, V: 1}

	if err := hsv.RotateHue(1, CCW); err != nil {
		t.Fatal(err)
	}
	if hsv.H != 359 {
		t.Error("expected hue of 359, got: ", hsv.H)
	}

	if err := hsv.RotateHue(2, CW); err != nil {
		t.Fatal(err)
	}
	if hsv.H != 1 {
		t.Error("expected hue of 1, got: ", hsv.H)
	}

	if err := hsv.RotateHue(725, CW); err != nil {
		t.Fatal(err)
	}
	if hsv.H != 6 {
		t.Error("expected hue of 6, got: ", hsv.H)
	}
}

func TestRotateHueUnknownDirection(t *testing.T) {
	hsv := HSV{H: 10, S: 1, V: 1}

	if err := hsv.RotateHue(5, "up"); err == nil {
		t.Error("expected an error for an unknown direction")
	}
	if hsv.H != 10 {
		t.Error("hue changed on error: ", hsv.H)
	}
}

func TestRGBA(t *testing.T) {
	var tests = []struct {
		hsv  HSV
		rgba color.RGBA
	}{
		{HSV{0, 0, 0}, color.RGBA{0, 0, 0, 255}},
		{HSV{0, 0, 1}, color.RGBA{255, 255, 255, 255}},
		{HSV{0, 1, 1}, color.RGBA{255, 0, 0, 255}},
		{HSV{60, 1, 1}, color.RGBA{255, 255, 0, 255}},
		{HSV{120, 1, 1}, color.RGBA{0, 255, 0, 255}},
		{HSV{180, 1, 1}, color.RGBA{0, 255, 255, 255}},
		{HSV{240, 1, 1}, color.RGBA{0, 0, 255, 255}},
		{HSV{300, 1, 1}, color.RGBA{255, 0, 255, 255}},
	}

	for _, tt := range tests {
		testname := fmt.Sprintf("HSV %v -> RGBA %v", tt.hsv, tt.rgba)
		t.Run(testname, func(t *testing.T) {
			res := tt.hsv.RGBA()
			if res != tt.rgba {
				t.Errorf("got %+v, want %+v", res, tt.rgba)
			}
		})
	}
}

func TestMarkerColor(t *testing.T) {
	if got := MarkerColor(0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("marker 0: got %+v", got)
	}
	if got := MarkerColor(1); got != (color.RGBA{0, 255, 72, 255}) {
		t.Errorf("marker 1: got %+v", got)
	}
	if MarkerColor(7) != MarkerColor(367) {
		t.Error("colors should repeat every 360 IDs")
	}
	if MarkerColor(3) == MarkerColor(4) {
		t.Error("neighbouring IDs share a color")
	}
}
