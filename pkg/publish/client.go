package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"gotypeset/pkg/ctxlog"
)

// DialTimeout bounds Dial when ctx has no earlier deadline.
const DialTimeout = 15 * time.Second

// DialOptions configures Dial.
type DialOptions struct {
	Namespace          string
	Room               string
	InsecureSkipVerify bool
}

// Client is a connected socket.io client.
type Client struct {
	io *socket.Socket
}

// Dial connects to the socket.io server at rawURL over WebSocket and joins
// the room, if any.
func Dial(ctx context.Context, rawURL string, o DialOptions) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse url: %q is not absolute", rawURL)
	}
	namespace := o.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	if u.Path != "" && u.Path != "/" {
		opts.SetPath(u.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", u.Scheme, u.Host), opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, ok := errs[0].(error)
		if !ok {
			err = fmt.Errorf("%v", errs[0])
		}
		connected <- err
	})
	io.Connect()

	timer := time.NewTimer(DialTimeout)
	defer timer.Stop()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connect: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("socket.io connect: timed out after %v", DialTimeout)
	}
	logger.Info("connected", "sid", io.Id(), "namespace", namespace)

	c := &Client{io: io}
	if o.Room != "" {
		if err := c.Emit(EventJoin, o.Room); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Emit sends an event.
func (c *Client) Emit(event string, args ...any) error {
	if !c.io.Connected() {
		return ErrNotConnected
	}
	return c.io.Emit(event, args...)
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.io.Disconnect()
	return nil
}
