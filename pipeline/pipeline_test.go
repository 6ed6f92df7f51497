package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaniruKun/aruco-relay/estimator"
	"github.com/DaniruKun/aruco-relay/pose"
	"github.com/DaniruKun/aruco-relay/publish"
)

type recordingSender struct {
	payloads [][]byte
}

func (s *recordingSender) Send(payload []byte) error {
	s.payloads = append(s.payloads, payload)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingSource yields frame numbers 1..n.
func countingSource(n int) Source[int] {
	i := 0
	return SourceFunc[int](func() (int, bool) {
		if i >= n {
			return 0, false
		}
		i++
		return i, true
	})
}

// markersOn returns a processor that detects k markers on every frame, with a
// pose for each when solve is set.
func markersOn(k int, solve bool) func(int) (estimator.Result, error) {
	return func(frame int) (estimator.Result, error) {
		var res estimator.Result
		for i := 0; i < k; i++ {
			res.IDs = append(res.IDs, i)
			if solve {
				res.Poses = append(res.Poses, pose.Pose{MarkerID: i, Translation: r3.Vector{X: float64(frame), Z: 1}})
			}
		}
		res.ValidPose = len(res.Poses) > 0
		return res, nil
	}
}

func newLoop(src Source[int], process func(int) (estimator.Result, error), sender *recordingSender) *Loop[int] {
	return &Loop[int]{
		Source:      src,
		Process:     process,
		Publisher:   publish.New(sender, publish.WithLogger(quietLogger())),
		ReportEvery: publish.DefaultEvery,
		Logger:      quietLogger(),
	}
}

func TestLoopPublishesOnCadence(t *testing.T) {
	var tests = []struct {
		name     string
		frames   int
		markers  int
		solve    bool
		messages int
	}{
		{"no markers", 90, 0, true, 0},
		{"markers without calibration", 90, 2, false, 0},
		{"one marker", 95, 1, true, 3},
		{"two markers", 60, 2, true, 4},
		{"short run", 29, 3, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			l := newLoop(countingSource(tt.frames), markersOn(tt.markers, tt.solve), sender)

			stats, err := l.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.frames, stats.Frames)
			assert.Len(t, sender.payloads, tt.messages)
			assert.Equal(t, tt.frames/30, l.Publisher.Stats().Ticks)
		})
	}
}

func TestLoopPublishesFrameThirtyPoses(t *testing.T) {
	sender := &recordingSender{}
	l := newLoop(countingSource(30), markersOn(2, true), sender)

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.payloads, 2)

	for i, payload := range sender.payloads {
		msg, err := publish.Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, int32(i), msg.MarkerID)
		assert.Equal(t, 30.0, msg.X)
	}
}

func TestLoopStopsOnRender(t *testing.T) {
	sender := &recordingSender{}
	l := newLoop(countingSource(100), markersOn(1, true), sender)
	l.Render = func(frame int, _ estimator.Result) bool { return frame == 45 }

	stats, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, stats.Frames)
	assert.Len(t, sender.payloads, 1)
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &recordingSender{}
	process := markersOn(1, true)
	l := newLoop(countingSource(100), func(frame int) (estimator.Result, error) {
		if frame == 10 {
			cancel()
		}
		return process(frame)
	}, sender)

	stats, err := l.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Frames)
}

func TestLoopProcessError(t *testing.T) {
	boom := errors.New("detector failed")
	l := newLoop(countingSource(10), func(int) (estimator.Result, error) { return estimator.Result{}, boom }, &recordingSender{})

	_, err := l.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestLoopEmptySource(t *testing.T) {
	l := newLoop(countingSource(0), markersOn(1, true), &recordingSender{})

	_, err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestLoopTiming(t *testing.T) {
	l := newLoop(countingSource(4), markersOn(0, false), &recordingSender{})
	var tick time.Time
	l.now = func() time.Time {
		tick = tick.Add(5 * time.Millisecond)
		return tick
	}

	stats, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, stats.Total)
	assert.Equal(t, 5*time.Millisecond, stats.Mean())
	assert.Equal(t, 5*time.Millisecond, stats.Last)
}
