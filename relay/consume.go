package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DaniruKun/aruco-relay/publish"
	"github.com/DaniruKun/aruco-relay/utils"
)

// Receiver is the inbound end of the pose connection.
type Receiver interface {
	Recv() ([]byte, error)
}

// Consumer prints every message it receives with a timestamp.
type Consumer struct {
	Out    io.Writer
	Decode bool // also print the decoded pose fields
	Logger *slog.Logger

	now func() time.Time
}

func (c *Consumer) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Run receives until ctx is done, which is a clean stop, or the receiver
// fails. It returns the number of messages printed.
func (c *Consumer) Run(ctx context.Context, r Receiver) (int, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var n int
	for {
		if ctx.Err() != nil {
			return n, nil
		}
		payload, err := r.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return n, nil
			}
			return n, err
		}
		n++

		line := fmt.Sprintf("[%s] received %s", utils.Timestamp(c.clock()), payload)
		if c.Decode {
			if m, err := publish.Decode(payload); err != nil {
				logger.Warn("could not decode pose", "bytes", len(payload), "error", err)
			} else {
				line += fmt.Sprintf(" (marker=%d x=%.4f y=%.4f z=%.4f yaw=%.4f pitch=%.4f roll=%.4f)",
					m.MarkerID, m.X, m.Y, m.Z, m.Yaw, m.Pitch, m.Roll)
			}
		}
		fmt.Fprintln(c.Out, line)
	}
}
