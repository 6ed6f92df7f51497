// Package pipeline runs the grab, estimate, publish, render loop over any
// frame type. It is single threaded: every step blocks the next.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DaniruKun/aruco-relay/estimator"
	"github.com/DaniruKun/aruco-relay/publish"
)

// ErrNoFrames is returned when the source yields nothing at all.
var ErrNoFrames = errors.New("source produced no frames")

// Source yields frames until it is exhausted or closed.
type Source[F any] interface {
	Next() (F, bool)
}

// SourceFunc adapts a function to a Source.
type SourceFunc[F any] func() (F, bool)

func (f SourceFunc[F]) Next() (F, bool) { return f() }

// Stats accumulates per-frame processing time.
type Stats struct {
	Frames int
	Total  time.Duration
	Last   time.Duration
}

// Add returns s with one more frame that took d.
func (s Stats) Add(d time.Duration) Stats {
	s.Frames++
	s.Total += d
	s.Last = d
	return s
}

// Mean returns the average processing time per frame.
func (s Stats) Mean() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Frames)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Loop wires a source, an estimation step, an optional renderer and a publisher.
type Loop[F any] struct {
	Source Source[F]

	// Process detects and estimates on one frame.
	Process func(frame F) (estimator.Result, error)

	// Render draws the result and reports whether the user asked to stop.
	// It may be nil when running headless.
	Render func(frame F, res estimator.Result) (stop bool)

	Publisher   *publish.Publisher
	ReportEvery int // frames between timing reports, 0 disables them
	Logger      *slog.Logger

	now func() time.Time
}

func (l *Loop[F]) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// Run processes frames until the source is exhausted, the renderer asks to
// stop, or ctx is done. Those all end the run without error.
func (l *Loop[F]) Run(ctx context.Context) (Stats, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var stats Stats
	for {
		if ctx.Err() != nil {
			logger.Info("stopping processing", "reason", ctx.Err(), "frames", stats.Frames)
			return stats, nil
		}

		frame, ok := l.Source.Next()
		if !ok {
			if stats.Frames == 0 {
				return stats, ErrNoFrames
			}
			logger.Info("source exhausted", "frames", stats.Frames)
			return stats, nil
		}

		start := l.clock()
		res, err := l.Process(frame)
		if err != nil {
			return stats, fmt.Errorf("frame %d: %w", stats.Frames+1, err)
		}
		stats = stats.Add(l.clock().Sub(start))

		if l.ReportEvery > 0 && stats.Frames%l.ReportEvery == 0 {
			logger.Info(fmt.Sprintf("Detection Time = %.3f ms (Mean = %.3f ms)", ms(stats.Last), ms(stats.Mean())),
				"frame", stats.Frames,
				"markers", len(res.IDs),
				"valid_pose", res.ValidPose)
		}

		if _, err := l.Publisher.Frame(stats.Frames, res.Poses); err != nil {
			return stats, err
		}

		if l.Render != nil && l.Render(frame, res) {
			logger.Info("stopping processing", "reason", "key pressed", "frames", stats.Frames)
			return stats, nil
		}
	}
}
