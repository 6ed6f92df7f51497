package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const undistortIterations = 20

// Camera is a calibrated pinhole camera with OpenCV's distortion model.
// Dist holds k1, k2, p1, p2 and optionally k3 and k4, k5, k6.
type Camera struct {
	Fx, Fy float64
	Cx, Cy float64
	Skew   float64
	Dist   []float64
}

// NewCamera builds a Camera from a row-major 3x3 intrinsic matrix and a
// distortion vector.
func NewCamera(k [9]float64, dist []float64) (Camera, error) {
	if k[0] <= 0 || k[4] <= 0 {
		return Camera{}, fmt.Errorf("focal lengths must be positive, got fx=%g fy=%g", k[0], k[4])
	}
	switch len(dist) {
	case 0, 4, 5, 8:
	default:
		return Camera{}, fmt.Errorf("unsupported number of distortion coefficients: %d", len(dist))
	}
	for _, d := range dist {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return Camera{}, errors.New("distortion coefficients must be finite")
		}
	}
	return Camera{
		Fx:   k[0],
		Skew: k[1],
		Cx:   k[2],
		Fy:   k[4],
		Cy:   k[5],
		Dist: append([]float64(nil), dist...),
	}, nil
}

func (c Camera) coeffs() (k1, k2, p1, p2, k3, k4, k5, k6 float64) {
	d := make([]float64, 8)
	copy(d, c.Dist)
	return d[0], d[1], d[2], d[3], d[4], d[5], d[6], d[7]
}

// Distort applies lens distortion to an ideal normalized image point.
func (c Camera) Distort(p r2.Point) r2.Point {
	k1, k2, p1, p2, k3, k4, k5, k6 := c.coeffs()
	x, y := p.X, p.Y
	rr := x*x + y*y
	radial := (1 + rr*(k1+rr*(k2+rr*k3))) / (1 + rr*(k4+rr*(k5+rr*k6)))

	return r2.Point{
		X: x*radial + 2*p1*x*y + p2*(rr+2*x*x),
		Y: y*radial + p1*(rr+2*y*y) + 2*p2*x*y,
	}
}

// Project maps a point in the camera frame to pixel coordinates.
func (c Camera) Project(v r3.Vector) r2.Point {
	d := c.Distort(r2.Point{X: v.X / v.Z, Y: v.Y / v.Z})
	return r2.Point{
		X: c.Fx*d.X + c.Skew*d.Y + c.Cx,
		Y: c.Fy*d.Y + c.Cy,
	}
}

// ProjectPoints transforms object points by p and projects them.
func (c Camera) ProjectPoints(objs []r3.Vector, p Pose) []r2.Point {
	r := p.RotationMatrix()
	out := make([]r2.Point, len(objs))
	for i, o := range objs {
		out[i] = c.Project(r.Apply(o).Add(p.Translation))
	}
	return out
}

// Normalize maps a pixel to an undistorted normalized image point.
func (c Camera) Normalize(px r2.Point) r2.Point {
	yd := (px.Y - c.Cy) / c.Fy
	xd := (px.X - c.Cx - c.Skew*yd) / c.Fx
	if len(c.Dist) == 0 {
		return r2.Point{X: xd, Y: yd}
	}

	k1, k2, p1, p2, k3, k4, k5, k6 := c.coeffs()
	x, y := xd, yd
	for i := 0; i < undistortIterations; i++ {
		rr := x*x + y*y
		icdist := (1 + rr*(k4+rr*(k5+rr*k6))) / (1 + rr*(k1+rr*(k2+rr*k3)))
		dx := 2*p1*x*y + p2*(rr+2*x*x)
		dy := p1*(rr+2*y*y) + 2*p2*x*y
		nx, ny := (xd-dx)*icdist, (yd-dy)*icdist
		if math.Abs(nx-x) < 1e-14 && math.Abs(ny-y) < 1e-14 {
			x, y = nx, ny
			break
		}
		x, y = nx, ny
	}
	return r2.Point{X: x, Y: y}
}
