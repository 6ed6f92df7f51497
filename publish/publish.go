// Package publish ships solved poses to a downstream consumer on a fixed
// frame cadence.
package publish

import (
	"fmt"
	"log/slog"

	"github.com/DaniruKun/aruco-relay/pose"
)

const (
	DefaultEvery      = 30 // frames between publish ticks
	DefaultMaxPerTick = 16 // messages allowed in one tick
)

// Sender delivers one opaque message. Implementations do not retry.
type Sender interface {
	Send(payload []byte) error
}

// Cadence decides which frames are publish ticks.
type Cadence struct {
	Every int
}

// Due reports whether the 1-based frame count n is a publish tick.
func (c Cadence) Due(n int) bool {
	if c.Every <= 0 || n <= 0 {
		return false
	}
	return n%c.Every == 0
}

// Ticks returns the number of publish ticks in the first n frames.
func (c Cadence) Ticks(n int) int {
	if c.Every <= 0 || n <= 0 {
		return 0
	}
	return n / c.Every
}

// Stats counts what the publisher has done.
type Stats struct {
	Ticks   int // due frames seen
	Sent    int // messages handed to the sender
	Dropped int // poses discarded by the per-tick cap
}

// Publisher sends every pose of a due frame as its own message.
type Publisher struct {
	sender     Sender
	cadence    Cadence
	maxPerTick int
	logger     *slog.Logger
	stats      Stats
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithEvery sets the number of frames between ticks.
func WithEvery(every int) Option {
	return func(p *Publisher) { p.cadence.Every = every }
}

// WithMaxPerTick caps the messages sent in one tick. Zero or less means no cap.
func WithMaxPerTick(max int) Option {
	return func(p *Publisher) { p.maxPerTick = max }
}

// WithLogger sets the logger used for per-message records.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New returns a Publisher writing to sender.
func New(sender Sender, opts ...Option) *Publisher {
	p := &Publisher{
		sender:     sender,
		cadence:    Cadence{Every: DefaultEvery},
		maxPerTick: DefaultMaxPerTick,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cadence returns the publisher's frame cadence.
func (p *Publisher) Cadence() Cadence {
	return p.cadence
}

// Stats returns the counters accumulated so far.
func (p *Publisher) Stats() Stats {
	return p.stats
}

// Frame is called once per processed frame with its 1-based count and the
// poses solved for it. It returns the number of messages sent. A send error
// stops the tick and is returned as is.
func (p *Publisher) Frame(n int, poses []pose.Pose) (int, error) {
	if !p.cadence.Due(n) {
		return 0, nil
	}
	p.stats.Ticks++

	if len(poses) == 0 {
		return 0, nil
	}
	if p.maxPerTick > 0 && len(poses) > p.maxPerTick {
		p.stats.Dropped += len(poses) - p.maxPerTick
		p.logger.Warn("pose burst capped", "frame", n, "poses", len(poses), "max", p.maxPerTick)
		poses = poses[:p.maxPerTick]
	}

	var sent int
	for _, ps := range poses {
		p.logger.Info("position vector",
			"frame", n,
			"marker", ps.MarkerID,
			"x", ps.Translation.X,
			"y", ps.Translation.Y,
			"z", ps.Translation.Z)

		if err := p.sender.Send(NewCameraPose(ps).Marshal()); err != nil {
			return sent, fmt.Errorf("send pose for marker %d: %w", ps.MarkerID, err)
		}
		sent++
		p.stats.Sent++
	}
	return sent, nil
}
