package board

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaniruKun/aruco-relay/pose"
)

// boardToImage maps board plane coordinates (meters, y up) to pixels.
var boardToImage = pose.Homography{
	{2000, 50, 100},
	{-30, -2000, 900},
	{0.05, 0.02, 1},
}

func newTestBoard(t *testing.T) *Charuco {
	t.Helper()
	b, err := NewCharuco(5, 7, 0.033, 0.025)
	require.NoError(t, err)
	return b
}

func imageQuad(m Marker) Quad {
	var q Quad
	for k, c := range m.Corners {
		q[k] = boardToImage.Apply(r2.Point{X: c.X, Y: c.Y})
	}
	return q
}

func detectAll(b *Charuco, skip map[int]bool) ([]Quad, []int) {
	var quads []Quad
	var ids []int
	for _, m := range b.Markers {
		if skip[m.ID] {
			continue
		}
		quads = append(quads, imageQuad(m))
		ids = append(ids, m.ID)
	}
	return quads, ids
}

func TestNewCharucoLayout(t *testing.T) {
	b := newTestBoard(t)

	assert.Len(t, b.Markers, 17)
	assert.Len(t, b.Corners, 24)
	assert.Equal(t, r3.Vector{X: 0.033, Y: 0.033}, b.Corners[0])
	assert.Equal(t, []int{12, 15}, b.AdjacentMarkers(0))
	assert.InDelta(t, 0.5*5*0.033, b.AxisLength(), 1e-12)

	for _, m := range b.Markers {
		side := m.Corners[1].Sub(m.Corners[0]).Norm()
		assert.InDelta(t, 0.025, side, 1e-12)
		assert.Greater(t, m.Corners[0].Y, m.Corners[3].Y, "marker %d top edge above bottom", m.ID)
	}
	for ci := range b.Corners {
		assert.Len(t, b.AdjacentMarkers(ci), 2, "corner %d", ci)
	}
}

func TestNewCharucoValidation(t *testing.T) {
	var tests = []struct {
		name           string
		x, y           int
		square, marker float64
	}{
		{"too few squares", 1, 5, 0.03, 0.02},
		{"marker larger than square", 5, 7, 0.02, 0.03},
		{"zero square", 5, 7, 0, 0.03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCharuco(tt.x, tt.y, tt.square, tt.marker)
			assert.Error(t, err)
		})
	}
}

func TestInterpolateCornersAllMarkers(t *testing.T) {
	b := newTestBoard(t)
	quads, ids := detectAll(b, nil)

	corners, cornerIDs := b.InterpolateCorners(quads, ids, DefaultMinMarkers)
	require.Len(t, cornerIDs, len(b.Corners))

	for i, id := range cornerIDs {
		c := b.Corners[id]
		want := boardToImage.Apply(r2.Point{X: c.X, Y: c.Y})
		assert.InDelta(t, want.X, corners[i].X, 1e-6)
		assert.InDelta(t, want.Y, corners[i].Y, 1e-6)
	}
}

func TestInterpolateCornersNeedsTwoMarkers(t *testing.T) {
	b := newTestBoard(t)

	quads, ids := detectAll(b, map[int]bool{12: true})
	_, cornerIDs := b.InterpolateCorners(quads, ids, DefaultMinMarkers)
	assert.NotContains(t, cornerIDs, 0)

	_, cornerIDs = b.InterpolateCorners(quads, ids, 1)
	assert.Contains(t, cornerIDs, 0)

	corners, cornerIDs := b.InterpolateCorners(nil, nil, DefaultMinMarkers)
	assert.Empty(t, corners)
	assert.Empty(t, cornerIDs)
}

func TestInterpolateCornersIgnoresForeignMarkers(t *testing.T) {
	b := newTestBoard(t)
	m, ok := b.Marker(3)
	require.True(t, ok)

	corners, _ := b.InterpolateCorners([]Quad{imageQuad(m)}, []int{99}, 1)
	assert.Empty(t, corners)
}

func TestRefindRecoversRotatedCandidate(t *testing.T) {
	b := newTestBoard(t)
	quads, ids := detectAll(b, map[int]bool{7: true})
	missing, _ := b.Marker(7)
	want := imageQuad(missing)

	rotated := Quad{want[1], want[2], want[3], want[0]}
	junk := Quad{{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 15, Y: 15}, {X: 5, Y: 15}}

	res := b.Refind(quads, ids, []Quad{junk, rotated}, nil, DefaultRefindParams())
	require.Equal(t, 1, res.Recovered)
	assert.Equal(t, 7, res.IDs[len(res.IDs)-1])
	for k := range want {
		assert.InDelta(t, want[k].X, res.Quads[len(res.Quads)-1][k].X, 1e-9)
		assert.InDelta(t, want[k].Y, res.Quads[len(res.Quads)-1][k].Y, 1e-9)
	}
	assert.Equal(t, []Quad{junk}, res.Rejected)
	assert.Len(t, ids, len(b.Markers)-1, "input left untouched")
}

func TestRefindRespectsCornerOrder(t *testing.T) {
	b := newTestBoard(t)
	quads, ids := detectAll(b, map[int]bool{7: true})
	missing, _ := b.Marker(7)
	want := imageQuad(missing)
	rotated := Quad{want[1], want[2], want[3], want[0]}

	p := DefaultRefindParams()
	p.CheckAllOrders = false
	res := b.Refind(quads, ids, []Quad{rotated}, nil, p)
	assert.Zero(t, res.Recovered)
	assert.Len(t, res.Rejected, 1)
}

func TestEnoughForPose(t *testing.T) {
	b := newTestBoard(t)

	assert.False(t, b.EnoughForPose([]int{0, 1, 2}))
	assert.False(t, b.EnoughForPose([]int{0, 1, 2, 3}), "single row")
	assert.False(t, b.EnoughForPose([]int{0, 4, 8, 12}), "single column")
	assert.True(t, b.EnoughForPose([]int{0, 1, 4, 5}))
}

func TestMarkerObjectPoints(t *testing.T) {
	pts := MarkerObjectPoints(0.2)
	assert.Equal(t, r3.Vector{X: -0.1, Y: 0.1}, pts[0])
	assert.Equal(t, r3.Vector{X: 0.1, Y: -0.1}, pts[2])
}
