package board

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/DaniruKun/aruco-relay/pose"
)

// RefindParams tunes the recovery of rejected candidates.
type RefindParams struct {
	MinRepDistance float64 // max mean corner distance, in pixels, to accept a candidate
	CheckAllOrders bool    // also try the three rotated corner orders
}

// DefaultRefindParams mirrors the detector library defaults.
func DefaultRefindParams() RefindParams {
	return RefindParams{MinRepDistance: 10, CheckAllOrders: true}
}

// RefindResult is the detection after the refind pass.
type RefindResult struct {
	Quads     []Quad
	IDs       []int
	Rejected  []Quad
	Recovered int
}

// Refind projects the board markers that were not detected, using the pose
// (when cam is non-nil) or the homography of the markers that were, and
// promotes rejected candidates lying close enough to a projected marker.
// Inputs are not modified.
func (b *Charuco) Refind(quads []Quad, ids []int, rejected []Quad, cam *pose.Camera, p RefindParams) RefindResult {
	res := RefindResult{
		Quads:    append([]Quad(nil), quads...),
		IDs:      append([]int(nil), ids...),
		Rejected: append([]Quad(nil), rejected...),
	}
	if len(rejected) == 0 {
		return res
	}

	var objs []r3.Vector
	var img []r2.Point
	detected := make(map[int]bool, len(ids))
	for i, id := range ids {
		idx, ok := b.byID[id]
		if !ok {
			continue
		}
		detected[idx] = true
		objs = append(objs, b.Markers[idx].Corners[:]...)
		img = append(img, quads[i].Points()...)
	}
	if len(objs) < 4 {
		return res
	}

	project, ok := b.projector(objs, img, cam)
	if !ok {
		return res
	}

	orders := 1
	if p.CheckAllOrders {
		orders = 4
	}

	for idx, m := range b.Markers {
		if detected[idx] || len(res.Rejected) == 0 {
			continue
		}
		var expected Quad
		for k, c := range m.Corners {
			expected[k] = project(c)
		}

		bestCand, bestRot, bestDist := -1, 0, math.Inf(1)
		for ci, cand := range res.Rejected {
			for rot := 0; rot < orders; rot++ {
				var d float64
				for k := 0; k < 4; k++ {
					d += expected[k].Sub(cand[(k+rot)%4]).Norm()
				}
				d /= 4
				if d < bestDist {
					bestCand, bestRot, bestDist = ci, rot, d
				}
			}
		}
		if bestCand < 0 || bestDist >= p.MinRepDistance {
			continue
		}

		cand := res.Rejected[bestCand]
		var aligned Quad
		for k := 0; k < 4; k++ {
			aligned[k] = cand[(k+bestRot)%4]
		}
		res.Quads = append(res.Quads, aligned)
		res.IDs = append(res.IDs, m.ID)
		res.Rejected = append(res.Rejected[:bestCand], res.Rejected[bestCand+1:]...)
		res.Recovered++
	}
	return res
}

func (b *Charuco) projector(objs []r3.Vector, img []r2.Point, cam *pose.Camera) (func(r3.Vector) r2.Point, bool) {
	if cam != nil {
		if p, err := pose.SolvePlanar(*cam, objs, img); err == nil {
			return func(v r3.Vector) r2.Point {
				return cam.Project(p.Transform(v))
			}, true
		}
	}

	plane := make([]r2.Point, len(objs))
	for i, o := range objs {
		plane[i] = r2.Point{X: o.X, Y: o.Y}
	}
	h, err := pose.FindHomography(plane, img)
	if err != nil {
		return nil, false
	}
	return func(v r3.Vector) r2.Point {
		return h.Apply(r2.Point{X: v.X, Y: v.Y})
	}, true
}
