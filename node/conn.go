package node

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/fzft/go-mini-redis/resp"
	"go.uber.org/multierr"
)

const (
	ProtoIOLen        = 1024 * 4 // initial capacity of the accumulation buffer
	ProtoMaxQueryBuf  = 1024 * 1024 * 1024
	protoWriteBufSize = 1024 * 16

	maxConsecutiveEmptyReads = 100
)

// ErrConnectionReset is returned by ReadFrame when the peer closed the
// stream in the middle of a frame.
var ErrConnectionReset = errors.New("connection reset by peer")

// ConnOptions tunes a Conn. Zero values take defaults.
type ConnOptions struct {
	ReadBufferSize int // initial accumulation buffer capacity
	MaxBufferSize  int // hard ceiling for buffered, undecoded bytes
	Limits         resp.Limits
}

// Conn reads and writes frames over one transport. It owns the transport
// and its accumulation buffer; it must not be used from two goroutines at
// once.
type Conn struct {
	stream io.ReadWriteCloser
	w      *bufio.Writer

	// buf holds received bytes that no frame has consumed yet.
	buf        []byte
	eof        bool
	emptyReads int

	maxBuf int
	limits resp.Limits
}

// NewConn takes ownership of stream.
func NewConn(stream io.ReadWriteCloser, opts ConnOptions) *Conn {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = ProtoIOLen
	}
	if opts.MaxBufferSize <= 0 {
		opts.MaxBufferSize = ProtoMaxQueryBuf
	}
	if opts.ReadBufferSize > opts.MaxBufferSize {
		opts.ReadBufferSize = opts.MaxBufferSize
	}
	return &Conn{
		stream: stream,
		w:      bufio.NewWriterSize(stream, protoWriteBufSize),
		buf:    make([]byte, 0, opts.ReadBufferSize),
		maxBuf: opts.MaxBufferSize,
		limits: opts.Limits,
	}
}

// ReadFrame returns the next frame in wire order. It returns io.EOF when
// the peer closed the stream between frames and ErrConnectionReset when it
// closed it mid-frame. Malformed input is returned as a resp error without
// reading any further.
func (c *Conn) ReadFrame() (resp.Frame, error) {
	for {
		f, err := c.parseFrame()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}

		n, err := c.fill()
		if err != nil {
			return nil, err
		}
		if n == 0 && c.eof {
			if len(c.buf) == 0 {
				return nil, io.EOF
			}
			return nil, ErrConnectionReset
		}
	}
}

// parseFrame decodes one frame from the buffered bytes. It returns a nil
// frame and no error when more bytes are needed.
func (c *Conn) parseFrame() (resp.Frame, error) {
	n, err := resp.Check(c.buf, c.limits)
	if errors.Is(err, resp.ErrIncomplete) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f, consumed, err := resp.Parse(c.buf, c.limits)
	if err != nil {
		return nil, err
	}
	if err := checkConsumed(consumed, n); err != nil {
		return nil, err
	}

	c.advance(n)
	return f, nil
}

// checkConsumed reports a decoder disagreement as a protocol error rather
// than desynchronizing the stream.
func checkConsumed(consumed, measured int) error {
	if consumed != measured {
		return &resp.ProtocolError{
			Reason: fmt.Sprintf("parse consumed %d bytes, check measured %d", consumed, measured),
			Offset: measured,
		}
	}
	return nil
}

// advance discards the first n buffered bytes.
func (c *Conn) advance(n int) {
	c.buf = c.buf[:copy(c.buf, c.buf[n:])]
}

// fill performs exactly one read from the transport, appending to buf.
// Too many reads in a row returning no data and no error fail with
// io.ErrNoProgress.
func (c *Conn) fill() (int, error) {
	if c.eof {
		return 0, nil
	}

	if len(c.buf) == cap(c.buf) {
		if len(c.buf) >= c.maxBuf {
			return 0, &resp.ProtocolError{
				Reason: fmt.Sprintf("too big frame, buffer limit is %d", c.maxBuf),
				Offset: len(c.buf),
			}
		}
		size := 2 * cap(c.buf)
		if size > c.maxBuf {
			size = c.maxBuf
		}
		grown := make([]byte, len(c.buf), size)
		copy(grown, c.buf)
		c.buf = grown
	}

	n, err := c.stream.Read(c.buf[len(c.buf):cap(c.buf)])
	c.buf = c.buf[:len(c.buf)+n]
	if errors.Is(err, io.EOF) {
		c.eof = true
		return n, nil
	}
	if n == 0 && err == nil {
		if c.emptyReads++; c.emptyReads >= maxConsecutiveEmptyReads {
			return 0, io.ErrNoProgress
		}
		return 0, nil
	}
	c.emptyReads = 0
	return n, err
}

// WriteFrame writes f and flushes it before returning.
func (c *Conn) WriteFrame(f resp.Frame) error {
	if err := resp.WriteFrame(c.w, f); err != nil {
		return err
	}
	return c.w.Flush()
}

// Buffered returns the number of received bytes not consumed by a frame.
func (c *Conn) Buffered() int {
	return len(c.buf)
}

// Close flushes pending output and closes the transport.
func (c *Conn) Close() error {
	return multierr.Append(c.w.Flush(), c.stream.Close())
}
