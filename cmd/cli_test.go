package cmd

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/node"
	"github.com/fzft/go-mini-redis/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want resp.Frame
	}{
		{"+OK", resp.SimpleString{Value: "OK"}},
		{"-ERR oops", resp.Error{Message: "ERR oops"}},
		{":42", resp.Integer{Value: 42}},
		{":-7", resp.Integer{Value: -7}},
		{"$-1", resp.Null{}},
		{"nil", resp.Null{}},
		{"PING", resp.Bulk("PING")},
		{"  hello world  ", resp.Bulk("hello world")},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f, err := parseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	_, err := parseLine(":abc")
	assert.Error(t, err)

	_, err = parseLine("*1")
	assert.ErrorIs(t, err, resp.ErrUnsupported)
}

func TestFormatReply(t *testing.T) {
	tests := []struct {
		f        resp.Frame
		standard string
		raw      string
	}{
		{resp.SimpleString{Value: "PONG"}, "PONG", "PONG"},
		{resp.Error{Message: "ERR x"}, "(error) ERR x", "ERR x"},
		{resp.Integer{Value: 3}, "(integer) 3", "3"},
		{resp.Null{}, "(nil)", ""},
		{resp.Bulk("hi"), `"hi"`, "hi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.standard, formatReply(tt.f, OutputStandard))
		assert.Equal(t, tt.raw, formatReply(tt.f, OutputRaw))
	}
}

func TestGetDotfilePath(t *testing.T) {
	t.Setenv(RedisCliHisFileEnv, "/tmp/hist")
	assert.Equal(t, "/tmp/hist", getDotfilePath(RedisCliHisFileEnv, RedisCliHisFileDefault))

	t.Setenv(RedisCliHisFileEnv, "/dev/null")
	assert.Equal(t, "", getDotfilePath(RedisCliHisFileEnv, RedisCliHisFileDefault))
}

func startServer(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := node.NewServer(config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(p)
	require.NoError(t, err)
	return h, port
}

func TestCliSendOnce(t *testing.T) {
	host, port := startServer(t)

	var out bytes.Buffer
	cmd := NewRootCmd(BuildInfo{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"cli", "-h", host, "-p", strconv.Itoa(port), "--no-raw", "PING"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "PONG\n", out.String())

	out.Reset()
	cmd = NewRootCmd(BuildInfo{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"cli", "-h", host, "-p", strconv.Itoa(port), "--no-raw", ":12"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "(integer) 12\n", out.String())

	out.Reset()
	cmd = NewRootCmd(BuildInfo{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"cli", "-h", host, "-p", strconv.Itoa(port), "--raw", "hello"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "hello\n", out.String())
}

func TestCliConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	var errOut bytes.Buffer
	cmd := NewRootCmd(BuildInfo{})
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"cli", "-p", strconv.Itoa(addr.Port), "PING"})
	assert.Error(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "could not connect")
}
