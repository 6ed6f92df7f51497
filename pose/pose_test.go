package pose

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matricesAlmostEqual(t *testing.T, want, got Matrix, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[i][j], got[i][j], tol, "element (%d,%d)", i, j)
		}
	}
}

func vectorsAlmostEqual(t *testing.T, want, got r3.Vector, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestEulerSingularHasZeroZ(t *testing.T) {
	var tests = []Angles{
		{X: 0.3, Y: math.Pi / 2, Z: 0.7},
		{X: -1.1, Y: -math.Pi / 2, Z: 0.2},
		{X: 0, Y: math.Pi / 2, Z: 0},
	}

	for _, a := range tests {
		t.Run(fmt.Sprintf("%+v", a), func(t *testing.T) {
			r := EulerToRotationMatrix(a)
			sy := math.Sqrt(r[0][0]*r[0][0] + r[1][0]*r[1][0])
			require.Less(t, sy, SingularThreshold)

			got := RotationMatrixToEuler(r)
			assert.Equal(t, 0.0, got.Z)
		})
	}
}

func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		a := Angles{
			X: (rng.Float64()*2 - 1) * math.Pi,
			Y: (rng.Float64()*2 - 1) * (math.Pi/2 - 0.01),
			Z: (rng.Float64()*2 - 1) * math.Pi,
		}
		r := EulerToRotationMatrix(a)

		back := EulerToRotationMatrix(RotationMatrixToEuler(r))
		matricesAlmostEqual(t, r, back, 1e-9)
	}
}

func TestRodriguesRoundTrip(t *testing.T) {
	var tests = []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 0.1, Y: -0.2, Z: 0.3},
		{X: 0, Y: 0, Z: math.Pi / 2},
		{X: 1.2, Y: 0.4, Z: -0.9},
		{X: 0, Y: math.Pi - 1e-6, Z: 0},
		{X: math.Pi / math.Sqrt2, Y: math.Pi / math.Sqrt2, Z: 0},
	}

	for _, rvec := range tests {
		t.Run(fmt.Sprintf("%v", rvec), func(t *testing.T) {
			r := Rodrigues(rvec)
			assert.InDelta(t, 1.0, r.Det(), 1e-12)
			matricesAlmostEqual(t, Identity(), r.Mul(r.Transpose()), 1e-12)

			matricesAlmostEqual(t, r, Rodrigues(RodriguesVector(r)), 1e-9)
		})
	}
}

func TestRodriguesVectorNearHalfTurn(t *testing.T) {
	var tests = []r3.Vector{
		{X: math.Pi, Y: 0, Z: 0},
		{X: math.Pi - 1e-7, Y: 0, Z: 0},
		{X: math.Pi / math.Sqrt2, Y: math.Pi / math.Sqrt2, Z: 0},
		{X: 0, Y: -(math.Pi - 1e-5), Z: 0},
	}

	for _, rvec := range tests {
		t.Run(fmt.Sprintf("%v", rvec), func(t *testing.T) {
			got := RodriguesVector(Rodrigues(rvec))
			assert.InDelta(t, rvec.Norm(), got.Norm(), 1e-12)
			// At exactly pi the axis sign is ambiguous.
			assert.InDelta(t, 1.0, math.Abs(got.Normalize().Dot(rvec.Normalize())), 1e-12)
		})
	}
}

func TestPoseEulerUsesRotationMatrix(t *testing.T) {
	a := Angles{X: 0.2, Y: -0.4, Z: 1.0}
	p := Pose{Rotation: RodriguesVector(EulerToRotationMatrix(a))}

	got := p.Euler()
	assert.InDelta(t, a.X, got.X, 1e-9)
	assert.InDelta(t, a.Y, got.Y, 1e-9)
	assert.InDelta(t, a.Z, got.Z, 1e-9)
}

func testCamera(t *testing.T) Camera {
	t.Helper()
	cam, err := NewCamera(
		[9]float64{650, 0, 320, 0, 652, 240, 0, 0, 1},
		[]float64{-0.12, 0.05, 0.001, -0.0005, -0.01},
	)
	require.NoError(t, err)
	return cam
}

func TestNewCameraValidation(t *testing.T) {
	_, err := NewCamera([9]float64{0, 0, 320, 0, 600, 240, 0, 0, 1}, nil)
	assert.Error(t, err)

	_, err = NewCamera([9]float64{600, 0, 320, 0, 600, 240, 0, 0, 1}, []float64{1, 2, 3})
	assert.Error(t, err)

	cam, err := NewCamera([9]float64{600, 0, 320, 0, 610, 240, 0, 0, 1}, []float64{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 600.0, cam.Fx)
	assert.Equal(t, 610.0, cam.Fy)
	assert.Equal(t, 240.0, cam.Cy)
}

func TestNormalizeInvertsProject(t *testing.T) {
	cam := testCamera(t)

	for _, v := range []r3.Vector{
		{X: 0, Y: 0, Z: 1},
		{X: 0.2, Y: -0.1, Z: 1.5},
		{X: -0.3, Y: 0.25, Z: 0.9},
	} {
		px := cam.Project(v)
		n := cam.Normalize(px)
		assert.InDelta(t, v.X/v.Z, n.X, 1e-9)
		assert.InDelta(t, v.Y/v.Z, n.Y, 1e-9)
	}
}

func TestFindHomography(t *testing.T) {
	want := Homography{{1.2, 0.1, 30}, {-0.05, 0.9, 12}, {0.0004, -0.0002, 1}}
	src := []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 80}, {X: 0, Y: 80}, {X: 40, Y: 30}}
	dst := make([]r2.Point, len(src))
	for i, p := range src {
		dst[i] = want.Apply(p)
	}

	got, err := FindHomography(src, dst)
	require.NoError(t, err)
	for i := range want {
		for j := range want[i] {
			assert.InDelta(t, want[i][j], got[i][j], 1e-7)
		}
	}

	_, err = FindHomography(src[:3], dst[:3])
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestSolvePlanarRecoversPose(t *testing.T) {
	cam := testCamera(t)
	half := 0.0975
	objs := []r3.Vector{
		{X: -half, Y: half}, {X: half, Y: half}, {X: half, Y: -half}, {X: -half, Y: -half},
	}

	var tests = []Pose{
		{Translation: r3.Vector{X: 0.1, Y: 0.2, Z: 1.0}, Rotation: r3.Vector{X: 0.1, Y: -0.2, Z: 0.05}},
		{Translation: r3.Vector{X: 0.3, Y: -0.1, Z: 1.2}, Rotation: r3.Vector{X: math.Pi - 0.3, Y: 0.1, Z: 0.2}},
		{Translation: r3.Vector{X: -0.05, Y: 0, Z: 0.6}, Rotation: r3.Vector{X: 0, Y: 0, Z: 0}},
	}

	for _, want := range tests {
		t.Run(fmt.Sprintf("t=%v", want.Translation), func(t *testing.T) {
			img := cam.ProjectPoints(objs, want)

			got, err := SolvePlanar(cam, objs, img)
			require.NoError(t, err)
			vectorsAlmostEqual(t, want.Translation, got.Translation, 1e-6)
			matricesAlmostEqual(t, want.RotationMatrix(), got.RotationMatrix(), 1e-6)
			assert.Less(t, ReprojectionError(cam, objs, img, got), 1e-8)
		})
	}
}

func TestSolvePlanarRejectsBadInput(t *testing.T) {
	cam := testCamera(t)
	objs := []r3.Vector{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	img := []r2.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}}

	_, err := SolvePlanar(cam, objs, img)
	assert.ErrorIs(t, err, ErrDegenerate)

	objs = append(objs, r3.Vector{X: 0, Y: 1, Z: 0.5})
	img = append(img, r2.Point{X: 1, Y: 2})
	_, err = SolvePlanar(cam, objs, img)
	assert.Error(t, err)
}
