package node

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fzft/go-mini-redis/resp"
)

const DefaultDialTimeout = 5 * time.Second

type ClientOptions struct {
	DialTimeout time.Duration
	KeepAlive   time.Duration
	Conn        ConnOptions
}

// Client sends one frame at a time to a server and waits for its reply.
type Client struct {
	addr string
	conn *Conn
}

// Dial connects to addr over TCP.
func Dial(ctx context.Context, addr string, opts ClientOptions) (*Client, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	d := net.Dialer{Timeout: opts.DialTimeout, KeepAlive: opts.KeepAlive}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", addr, err)
	}
	return NewClient(addr, nc, opts.Conn), nil
}

// NewClient wraps an established stream. The client owns it from now on.
func NewClient(addr string, stream io.ReadWriteCloser, opts ConnOptions) *Client {
	return &Client{
		addr: addr,
		conn: NewConn(stream, opts),
	}
}

// Do writes f and reads the next reply. A server that hangs up before
// replying yields io.ErrUnexpectedEOF.
func (c *Client) Do(f resp.Frame) (resp.Frame, error) {
	if err := c.conn.WriteFrame(f); err != nil {
		return nil, err
	}
	reply, err := c.conn.ReadFrame()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return reply, err
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) Close() error {
	return c.conn.Close()
}
