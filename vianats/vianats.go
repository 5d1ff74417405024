// Package vianats provides an embedded NATS server as a pub/sub backend for
// via applications. hellovia uses it to fan out toggle flip events.
package vianats

import (
	"context"
	"fmt"

	"github.com/delaneyj/toolbelt/embeddednats"
	"github.com/nats-io/nats.go"
	via "github.com/ryanhamamura/hellovia"
)

// NATS implements via.PubSub using an embedded NATS server.
type NATS struct {
	server *embeddednats.Server
	nc     *nats.Conn
}

// New starts an embedded NATS server storing its data in dataDir and returns a
// connected client. The server shuts down when ctx is cancelled.
func New(ctx context.Context, dataDir string) (*NATS, error) {
	ns, err := embeddednats.New(ctx, embeddednats.WithDirectory(dataDir))
	if err != nil {
		return nil, fmt.Errorf("vianats: start server: %w", err)
	}
	ns.WaitForServer()

	nc, err := ns.Client()
	if err != nil {
		ns.Close()
		return nil, fmt.Errorf("vianats: connect client: %w", err)
	}
	return &NATS{server: ns, nc: nc}, nil
}

// Publish sends data to the given subject using core NATS publish.
func (n *NATS) Publish(subject string, data []byte) error {
	return n.nc.Publish(subject, data)
}

// Subscribe creates a core NATS subscription for real-time fan-out delivery.
func (n *NATS) Subscribe(subject string, handler func(data []byte)) (via.Subscription, error) {
	sub, err := n.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("vianats: subscribe %q: %w", subject, err)
	}
	return sub, nil
}

// Close flushes pending publishes, then shuts down the client connection and
// the embedded server.
func (n *NATS) Close() error {
	_ = n.nc.Flush()
	n.nc.Close()
	return n.server.Close()
}
