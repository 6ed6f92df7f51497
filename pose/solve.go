package pose

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const planarTolerance = 1e-9

// ReprojectionError returns the sum of squared pixel distances between img
// and the projection of objs under p.
func ReprojectionError(cam Camera, objs []r3.Vector, img []r2.Point, p Pose) float64 {
	var sum float64
	for i, q := range cam.ProjectPoints(objs, p) {
		d := q.Sub(img[i])
		sum += d.Dot(d)
	}
	return sum
}

// SolvePlanar estimates the pose of a planar object (all Z == 0) from at
// least four point correspondences. The initial estimate is decomposed from
// the homography between the object plane and the undistorted image, then
// refined by minimizing reprojection error.
func SolvePlanar(cam Camera, objs []r3.Vector, img []r2.Point) (Pose, error) {
	if len(objs) != len(img) {
		return Pose{}, fmt.Errorf("point count mismatch: %d object, %d image", len(objs), len(img))
	}
	if len(objs) < 4 {
		return Pose{}, fmt.Errorf("need at least 4 points, got %d: %w", len(objs), ErrDegenerate)
	}

	plane := make([]r2.Point, len(objs))
	norm := make([]r2.Point, len(img))
	for i, o := range objs {
		if math.Abs(o.Z) > planarTolerance {
			return Pose{}, fmt.Errorf("object point %d is off the z=0 plane", i)
		}
		plane[i] = r2.Point{X: o.X, Y: o.Y}
		norm[i] = cam.Normalize(img[i])
	}

	h, err := FindHomography(plane, norm)
	if err != nil {
		return Pose{}, fmt.Errorf("plane homography: %w", err)
	}
	initial, err := decompose(h)
	if err != nil {
		return Pose{}, err
	}
	return refine(cam, objs, img, initial), nil
}

// decompose splits a plane-to-normalized-image homography [r1 r2 t] into a
// rotation and translation in front of the camera.
func decompose(h Homography) (Pose, error) {
	h1 := r3.Vector{X: h[0][0], Y: h[1][0], Z: h[2][0]}
	h2 := r3.Vector{X: h[0][1], Y: h[1][1], Z: h[2][1]}
	h3 := r3.Vector{X: h[0][2], Y: h[1][2], Z: h[2][2]}

	n := h1.Norm() + h2.Norm()
	if n < 1e-15 {
		return Pose{}, ErrDegenerate
	}
	lambda := 2 / n
	if h3.Z < 0 {
		lambda = -lambda
	}
	r1 := h1.Mul(lambda)
	r2v := h2.Mul(lambda)
	t := h3.Mul(lambda)
	r3v := r1.Cross(r2v)

	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2v.X, r3v.X,
		r1.Y, r2v.Y, r3v.Y,
		r1.Z, r2v.Z, r3v.Z,
	})
	var svd mat.SVD
	if !svd.Factorize(approx, mat.SVDFull) {
		return Pose{}, fmt.Errorf("rotation SVD did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var rot mat.Dense
	rot.Mul(&u, v.T())

	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = rot.At(i, j)
		}
	}
	if r.Det() < 0 {
		for i := 0; i < 3; i++ {
			r[i][2] = -r[i][2]
		}
	}
	return Pose{MarkerID: -1, Translation: t, Rotation: RodriguesVector(r)}, nil
}

func refine(cam Camera, objs []r3.Vector, img []r2.Point, initial Pose) Pose {
	toPose := func(x []float64) Pose {
		return Pose{
			MarkerID:    initial.MarkerID,
			Rotation:    r3.Vector{X: x[0], Y: x[1], Z: x[2]},
			Translation: r3.Vector{X: x[3], Y: x[4], Z: x[5]},
		}
	}
	cost := func(x []float64) float64 {
		return ReprojectionError(cam, objs, img, toPose(x))
	}

	x0 := []float64{
		initial.Rotation.X, initial.Rotation.Y, initial.Rotation.Z,
		initial.Translation.X, initial.Translation.Y, initial.Translation.Z,
	}
	f0 := cost(x0)
	if f0 < 1e-16 {
		return initial
	}

	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 200,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if err != nil && result == nil {
		return initial
	}
	// A failed line search still reports the best location reached.
	if result.F >= f0 {
		return initial
	}
	return toPose(result.X)
}
