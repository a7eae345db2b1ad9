package node

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"testing/iotest"

	"github.com/fzft/go-mini-redis/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConn is an in-memory transport: reads come from In, writes land in Out.
type TestConn struct {
	In      io.Reader
	Out     bytes.Buffer
	Writes  int
	Closed  bool
	ReadErr error
}

func (t *TestConn) Read(p []byte) (int, error) {
	if t.ReadErr != nil {
		return 0, t.ReadErr
	}
	return t.In.Read(p)
}

func (t *TestConn) Write(p []byte) (int, error) {
	t.Writes++
	return t.Out.Write(p)
}

func (t *TestConn) Close() error {
	t.Closed = true
	return nil
}

func newTestConn(in string) (*Conn, *TestConn) {
	tc := &TestConn{In: bytes.NewReader([]byte(in))}
	return NewConn(tc, ConnOptions{}), tc
}

func TestReadFrameSequence(t *testing.T) {
	c, _ := newTestConn("+OK\r\n:42\r\n$-1\r\n$3\r\nfoo\r\n-ERR bad\r\n")

	want := []resp.Frame{
		resp.SimpleString{Value: "OK"},
		resp.Integer{Value: 42},
		resp.Null{},
		resp.BulkString{Value: []byte("foo")},
		resp.Error{Message: "ERR bad"},
	}
	for _, w := range want {
		f, err := c.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, w, f)
	}

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameOneByteAtATime(t *testing.T) {
	tc := &TestConn{In: iotest.OneByteReader(bytes.NewReader([]byte("$5\r\nhello\r\n:7\r\n")))}
	c := NewConn(tc, ConnOptions{})

	f, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.Bulk("hello"), f)
	assert.Equal(t, 0, c.Buffered())

	f, err = c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.Integer{Value: 7}, f)
}

func TestReadFrameKeepsFollowingBytes(t *testing.T) {
	c, _ := newTestConn("+A\r\n$3\r\nba")

	f, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.SimpleString{Value: "A"}, f)
	assert.Equal(t, []byte("$3\r\nba"), c.buf)
}

func TestReadFrameCleanEOF(t *testing.T) {
	c, _ := newTestConn("")

	f, err := c.ReadFrame()
	assert.Nil(t, f)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncated(t *testing.T) {
	c, _ := newTestConn("$5\r\nab")

	f, err := c.ReadFrame()
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrConnectionReset)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncatedAfterFrame(t *testing.T) {
	c, _ := newTestConn("+OK\r\n:1")

	f, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.SimpleString{Value: "OK"}, f)

	_, err = c.ReadFrame()
	assert.ErrorIs(t, err, ErrConnectionReset)
}

func TestReadFrameMalformedStopsReading(t *testing.T) {
	tc := &TestConn{In: bytes.NewReader([]byte("%2\r\n"))}
	c := NewConn(tc, ConnOptions{})

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, resp.ErrMalformed)

	// the corrupt bytes are left in place, nothing was consumed
	assert.Equal(t, 4, c.Buffered())
}

func TestReadFrameArrayUnsupported(t *testing.T) {
	c, _ := newTestConn("*1\r\n$4\r\nPING\r\n")

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, resp.ErrUnsupported)
}

func TestReadFrameTransportError(t *testing.T) {
	boom := errors.New("boom")
	tc := &TestConn{ReadErr: boom}
	c := NewConn(tc, ConnOptions{})

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, boom)
}

func TestReadFrameGrowsBuffer(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 10000)
	enc, err := resp.Encode(resp.BulkString{Value: payload})
	require.NoError(t, err)

	tc := &TestConn{In: bytes.NewReader(enc)}
	c := NewConn(tc, ConnOptions{ReadBufferSize: 16})

	f, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.BulkString{Value: payload}, f)
}

func TestReadFrameBufferLimit(t *testing.T) {
	in := "$100\r\n" + string(bytes.Repeat([]byte("y"), 100)) + "\r\n"
	c := NewConn(&TestConn{In: bytes.NewReader([]byte(in))}, ConnOptions{ReadBufferSize: 8, MaxBufferSize: 32})

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, resp.ErrMalformed)
}

func TestWriteFrameFlushesOnce(t *testing.T) {
	c, tc := newTestConn("")

	require.NoError(t, c.WriteFrame(resp.Bulk("hello")))
	assert.Equal(t, "$5\r\nhello\r\n", tc.Out.String())
	assert.Equal(t, 1, tc.Writes)

	require.NoError(t, c.WriteFrame(resp.Integer{Value: 42}))
	assert.Equal(t, "$5\r\nhello\r\n:42\r\n", tc.Out.String())
	assert.Equal(t, 2, tc.Writes)
}

func TestWriteFrameArray(t *testing.T) {
	c, tc := newTestConn("")

	err := c.WriteFrame(resp.Array{})
	assert.ErrorIs(t, err, resp.ErrUnsupported)
	assert.Equal(t, 0, tc.Out.Len())
}

func TestConnClose(t *testing.T) {
	c, tc := newTestConn("")
	require.NoError(t, c.Close())
	assert.True(t, tc.Closed)
}

func TestConnOverPipe(t *testing.T) {
	client, server := net.Pipe()
	cc := NewConn(client, ConnOptions{})
	sc := NewConn(server, ConnOptions{})

	done := make(chan error, 1)
	go func() {
		f, err := sc.ReadFrame()
		if err != nil {
			done <- err
			return
		}
		done <- sc.WriteFrame(f)
	}()

	require.NoError(t, cc.WriteFrame(resp.SimpleString{Value: "PING"}))
	f, err := cc.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.SimpleString{Value: "PING"}, f)
	require.NoError(t, <-done)

	require.NoError(t, cc.Close())
	_, err = sc.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, sc.Close())
}

// emptyReader never returns data or an error.
type emptyReader struct{ reads int }

func (r *emptyReader) Read(p []byte) (int, error) {
	r.reads++
	return 0, nil
}

func TestReadFrameNoProgress(t *testing.T) {
	r := &emptyReader{}
	c := NewConn(&TestConn{In: r}, ConnOptions{})

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, io.ErrNoProgress)
	assert.Equal(t, maxConsecutiveEmptyReads, r.reads)
}

func TestReadFrameEmptyReadsThenData(t *testing.T) {
	r := io.MultiReader(&limitedEmptyReader{n: maxConsecutiveEmptyReads - 1}, bytes.NewReader([]byte(":5\r\n")))
	c := NewConn(&TestConn{In: r}, ConnOptions{})

	f, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, resp.Integer{Value: 5}, f)
}

// limitedEmptyReader returns (0, nil) n times and then io.EOF.
type limitedEmptyReader struct{ n int }

func (r *limitedEmptyReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		return 0, io.EOF
	}
	r.n--
	return 0, nil
}

func TestNewConnClampsReadBuffer(t *testing.T) {
	c := NewConn(&TestConn{In: bytes.NewReader(nil)}, ConnOptions{ReadBufferSize: 64, MaxBufferSize: 8})
	assert.Equal(t, 8, cap(c.buf))

	c = NewConn(&TestConn{In: bytes.NewReader(nil)}, ConnOptions{ReadBufferSize: 64})
	assert.Equal(t, 64, cap(c.buf))
}

func TestCheckConsumed(t *testing.T) {
	assert.NoError(t, checkConsumed(5, 5))

	err := checkConsumed(4, 5)
	assert.ErrorIs(t, err, resp.ErrMalformed)
	var perr *resp.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 5, perr.Offset)
}
