package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when a point configuration does not constrain
// the requested transform.
var ErrDegenerate = errors.New("degenerate point configuration")

// Homography is a row-major planar projective transform.
type Homography [3][3]float64

// Apply maps p through h.
func (h Homography) Apply(p r2.Point) r2.Point {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	return r2.Point{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}

// similarity returns the Hartley normalizing transform for pts and its inverse.
func similarity(pts []r2.Point) (t, inv Homography, err error) {
	var c r2.Point
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(pts)))

	var mean float64
	for _, p := range pts {
		mean += p.Sub(c).Norm()
	}
	mean /= float64(len(pts))
	if mean < 1e-12 {
		return t, inv, ErrDegenerate
	}
	s := math.Sqrt2 / mean

	t = Homography{{s, 0, -s * c.X}, {0, s, -s * c.Y}, {0, 0, 1}}
	inv = Homography{{1 / s, 0, c.X}, {0, 1 / s, c.Y}, {0, 0, 1}}
	return t, inv, nil
}

func (h Homography) mul(o Homography) Homography {
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += h[i][k] * o[k][j]
			}
		}
	}
	return out
}

// FindHomography estimates the homography mapping src onto dst with the
// normalized direct linear transform. At least four correspondences are needed.
func FindHomography(src, dst []r2.Point) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("point count mismatch: %d src, %d dst", len(src), len(dst))
	}
	if len(src) < 4 {
		return Homography{}, fmt.Errorf("need at least 4 correspondences, got %d: %w", len(src), ErrDegenerate)
	}

	ts, _, err := similarity(src)
	if err != nil {
		return Homography{}, err
	}
	td, tdInv, err := similarity(dst)
	if err != nil {
		return Homography{}, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		s := ts.Apply(src[i])
		d := td.Apply(dst[i])
		a.SetRow(2*i, []float64{-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Homography{}, errors.New("homography SVD did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	// The right singular vector of the smallest singular value spans the
	// solution. With exactly four points it is the null space column.
	var hn Homography
	for i := 0; i < 9; i++ {
		hn[i/3][i%3] = v.At(i, 8)
	}

	h := tdInv.mul(hn).mul(ts)
	if math.Abs(h[2][2]) < 1e-15 {
		return Homography{}, ErrDegenerate
	}
	scale := 1 / h[2][2]
	for i := range h {
		for j := range h[i] {
			h[i][j] *= scale
			if math.IsNaN(h[i][j]) || math.IsInf(h[i][j], 0) {
				return Homography{}, ErrDegenerate
			}
		}
	}
	return h, nil
}
