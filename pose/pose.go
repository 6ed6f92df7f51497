// Package pose holds the geometry shared by the estimators: rigid poses,
// rotation conversions, the pinhole camera model and planar pose solving.
package pose

import (
	"math"

	"github.com/golang/geo/r3"
)

// SingularThreshold is the value of sqrt(R00^2 + R10^2) below which the
// Tait-Bryan decomposition is treated as gimbal locked.
const SingularThreshold = 1e-6

// Pose is a rigid transform from an object frame (marker or board) into the
// camera frame. Translation is in the same unit as the object points, which
// for calibrated runs is meters.
type Pose struct {
	MarkerID    int       // detected marker ID, or -1 for a board pose
	Translation r3.Vector // tvec
	Rotation    r3.Vector // rvec, Rodrigues axis-angle
}

// Angles are rotations around x, y and z, in radians.
type Angles struct {
	X float64
	Y float64
	Z float64
}

// Matrix is a row-major 3x3 matrix.
type Matrix [3][3]float64

// Identity returns the 3x3 identity matrix.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m*n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return out
}

// Apply returns m*v.
func (m Matrix) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	var out Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Det returns the determinant of m.
func (m Matrix) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// RotationMatrix returns the rotation matrix of the pose.
func (p Pose) RotationMatrix() Matrix {
	return Rodrigues(p.Rotation)
}

// Transform maps a point from the object frame into the camera frame.
func (p Pose) Transform(v r3.Vector) r3.Vector {
	return p.RotationMatrix().Apply(v).Add(p.Translation)
}

// Euler returns the yaw/pitch/roll style angles of the pose rotation.
func (p Pose) Euler() Angles {
	return RotationMatrixToEuler(p.RotationMatrix())
}

// RotationMatrixToEuler decomposes R = Rz*Ry*Rx into its three angles.
// When the decomposition is singular the z angle is 0.
func RotationMatrixToEuler(r Matrix) Angles {
	sy := math.Sqrt(r[0][0]*r[0][0] + r[1][0]*r[1][0])

	if sy < SingularThreshold {
		return Angles{
			X: math.Atan2(-r[1][2], r[1][1]),
			Y: math.Atan2(-r[2][0], sy),
			Z: 0,
		}
	}
	return Angles{
		X: math.Atan2(r[2][1], r[2][2]),
		Y: math.Atan2(-r[2][0], sy),
		Z: math.Atan2(r[1][0], r[0][0]),
	}
}

// EulerToRotationMatrix builds Rz*Ry*Rx from a.
func EulerToRotationMatrix(a Angles) Matrix {
	sx, cx := math.Sincos(a.X)
	sy, cy := math.Sincos(a.Y)
	sz, cz := math.Sincos(a.Z)

	rx := Matrix{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	ry := Matrix{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := Matrix{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return rz.Mul(ry).Mul(rx)
}

// Rodrigues converts an axis-angle vector into a rotation matrix.
func Rodrigues(rvec r3.Vector) Matrix {
	theta := rvec.Norm()
	if theta < 1e-12 {
		return Identity()
	}
	k := rvec.Mul(1 / theta)
	s, c := math.Sincos(theta)
	t := 1 - c

	return Matrix{
		{c + t*k.X*k.X, t*k.X*k.Y - s*k.Z, t*k.X*k.Z + s*k.Y},
		{t*k.Y*k.X + s*k.Z, c + t*k.Y*k.Y, t*k.Y*k.Z - s*k.X},
		{t*k.Z*k.X - s*k.Y, t*k.Z*k.Y + s*k.X, c + t*k.Z*k.Z},
	}
}

// RodriguesVector converts a rotation matrix into an axis-angle vector.
func RodriguesVector(r Matrix) r3.Vector {
	skew := r3.Vector{
		X: r[2][1] - r[1][2],
		Y: r[0][2] - r[2][0],
		Z: r[1][0] - r[0][1],
	}
	cos := (r[0][0] + r[1][1] + r[2][2] - 1) / 2
	cos = math.Max(-1, math.Min(1, cos))
	// acos loses precision near 0 and pi; |skew| = 2 sin(theta) does not.
	theta := math.Atan2(skew.Norm()/2, cos)

	switch {
	case theta < 1e-9:
		return skew.Mul(0.5)
	case math.Pi-theta < 1e-4:
		// sin(theta) vanishes near pi, so recover the axis from the diagonal.
		i := 0
		for j := 1; j < 3; j++ {
			if r[j][j] > r[i][i] {
				i = j
			}
		}
		var axis [3]float64
		axis[i] = math.Sqrt(math.Max(0, (r[i][i]-cos)/(1-cos)))
		for j := 0; j < 3; j++ {
			if j != i {
				axis[j] = (r[i][j] + r[j][i]) / (2 * axis[i] * (1 - cos))
			}
		}
		k := r3.Vector{X: axis[0], Y: axis[1], Z: axis[2]}.Normalize()
		if k.Dot(skew) < 0 {
			k = k.Mul(-1)
		}
		return k.Mul(theta)
	default:
		return skew.Mul(theta / (2 * math.Sin(theta)))
	}
}
