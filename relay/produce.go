package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/DaniruKun/aruco-relay/estimator"
	"github.com/DaniruKun/aruco-relay/pipeline"
	"github.com/DaniruKun/aruco-relay/publish"
	"github.com/DaniruKun/aruco-relay/transport"
)

// Link is the outbound end of the pose connection.
type Link interface {
	publish.Sender
	io.Closer
}

// DialFunc opens the outbound link.
type DialFunc func(ctx context.Context, endpoint string) (Link, error)

// DialPair opens a PAIR socket link with the given options.
func DialPair(opts transport.DialOptions) DialFunc {
	return func(ctx context.Context, endpoint string) (Link, error) {
		return transport.Dial(ctx, endpoint, opts)
	}
}

// Vision is the pixel side of a run: frame capture, detection, drawing.
type Vision[F any] interface {
	pipeline.Source[F]
	Process(frame F) (estimator.Result, error)
	Render(frame F, res estimator.Result) (stop bool)
	io.Closer
}

// OpenFunc opens the vision side once the setup is loaded.
type OpenFunc[F any] func(s *Setup) (Vision[F], error)

// Produce runs a producer: it loads the parameter files, opens the frame
// source and the link, then runs the frame loop until the source ends, the
// user stops it, or ctx is done. Configuration errors are returned before
// anything is opened.
func Produce[F any](ctx context.Context, o Options, open OpenFunc[F], dial DialFunc, logger *slog.Logger) (pipeline.Stats, error) {
	setup, err := Prepare(o, logger)
	if err != nil {
		return pipeline.Stats{}, err
	}

	vision, err := open(setup)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer vision.Close()

	logger.Info("connecting to server", "endpoint", o.Endpoint)
	link, err := dial(ctx, o.Endpoint)
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("could not connect pose link: %w", err)
	}
	defer link.Close()

	pub := publish.New(link, setup.PublisherOptions(logger)...)
	loop := &pipeline.Loop[F]{
		Source:      vision,
		Process:     vision.Process,
		Render:      vision.Render,
		Publisher:   pub,
		ReportEvery: o.Every,
		Logger:      logger,
	}

	stats, err := loop.Run(ctx)
	ps := pub.Stats()
	logger.Info("run finished",
		"frames", stats.Frames,
		"mean_ms", float64(stats.Mean().Microseconds())/1000,
		"ticks", ps.Ticks,
		"sent", ps.Sent,
		"dropped", ps.Dropped)
	return stats, err
}
