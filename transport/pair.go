// Package transport wraps the point-to-point PAIR socket poses travel over.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-zeromq/zmq4"
)

// DefaultBindEndpoint is where the consumer listens when none is given.
const DefaultBindEndpoint = "tcp://*:5000"

// DialOptions tunes how the producer side connects.
type DialOptions struct {
	RetryInterval time.Duration
	MaxRetries    int // -1 retries forever
}

// DefaultDialOptions keeps retrying for a few seconds while the consumer starts.
func DefaultDialOptions() DialOptions {
	return DialOptions{RetryInterval: 250 * time.Millisecond, MaxRetries: 20}
}

// Pair is one end of a PAIR socket. It is not safe for concurrent use.
type Pair struct {
	sock     zmq4.Socket
	endpoint string
}

// ValidateEndpoint checks that an endpoint looks like tcp://host:port or
// ipc://path.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("endpoint is empty")
	}
	scheme, addr, ok := strings.Cut(endpoint, "://")
	if !ok || addr == "" {
		return fmt.Errorf("endpoint %q must look like tcp://host:port", endpoint)
	}
	switch scheme {
	case "tcp":
		if i := strings.LastIndex(addr, ":"); i <= 0 || i == len(addr)-1 {
			return fmt.Errorf("endpoint %q has no port", endpoint)
		}
	case "ipc", "inproc":
	default:
		return fmt.Errorf("unsupported endpoint scheme %q", scheme)
	}
	return nil
}

// normalize rewrites the wildcard host accepted by libzmq binds.
func normalize(endpoint string) string {
	return strings.Replace(endpoint, "://*:", "://0.0.0.0:", 1)
}

// Dial connects a PAIR socket to a listening peer. The socket lives until
// Close or until ctx is done.
func Dial(ctx context.Context, endpoint string, opts DialOptions) (*Pair, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	sock := zmq4.NewPair(ctx,
		zmq4.WithDialerRetry(opts.RetryInterval),
		zmq4.WithDialerMaxRetries(opts.MaxRetries),
	)
	if err := sock.Dial(normalize(endpoint)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("could not dial %s: %w", endpoint, err)
	}
	return &Pair{sock: sock, endpoint: endpoint}, nil
}

// Listen binds a PAIR socket and waits for a peer in the background.
func Listen(ctx context.Context, endpoint string) (*Pair, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	sock := zmq4.NewPair(ctx)
	if err := sock.Listen(normalize(endpoint)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("could not bind %s: %w", endpoint, err)
	}
	return &Pair{sock: sock, endpoint: endpoint}, nil
}

// Addr returns the bound address of a listening pair, nil otherwise.
func (p *Pair) Addr() net.Addr {
	return p.sock.Addr()
}

// Endpoint returns the address the pair was opened with.
func (p *Pair) Endpoint() string {
	return p.endpoint
}

// Send writes one message. It does not wait for the peer to read it.
func (p *Pair) Send(payload []byte) error {
	if err := p.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return fmt.Errorf("send on %s: %w", p.endpoint, err)
	}
	return nil
}

// Recv blocks until a message arrives and returns its bytes.
func (p *Pair) Recv() ([]byte, error) {
	msg, err := p.sock.Recv()
	if err != nil {
		return nil, fmt.Errorf("recv on %s: %w", p.endpoint, err)
	}
	if len(msg.Frames) == 1 {
		return msg.Frames[0], nil
	}
	return bytes.Join(msg.Frames, nil), nil
}

// Close releases the socket.
func (p *Pair) Close() error {
	return p.sock.Close()
}
