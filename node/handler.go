package node

import (
	"context"
	"strings"

	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/resp"
	"go.uber.org/zap"
)

// Handler answers one decoded frame. A nil reply with a nil error sends
// nothing back; a non-nil error is sent to the peer as an Error frame.
type Handler interface {
	ServeFrame(ctx context.Context, f resp.Frame) (resp.Frame, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, f resp.Frame) (resp.Frame, error)

func (fn HandlerFunc) ServeFrame(ctx context.Context, f resp.Frame) (resp.Frame, error) {
	return fn(ctx, f)
}

var (
	SharedPong          = resp.SimpleString{Value: "PONG"}
	SharedUnimplemented = resp.Error{Message: "ERR unimplemented"}
)

// DefaultHandler answers PING with PONG and echoes every other frame it
// understands back to the peer.
type DefaultHandler struct{}

func (DefaultHandler) ServeFrame(ctx context.Context, f resp.Frame) (resp.Frame, error) {
	log.Logger.Debug("read frame", zap.Stringer("frame", f))

	switch v := f.(type) {
	case resp.SimpleString:
		if strings.EqualFold(v.Value, "PING") {
			return SharedPong, nil
		}
		return v, nil
	case resp.BulkString:
		if strings.EqualFold(string(v.Value), "PING") {
			return SharedPong, nil
		}
		return v, nil
	case resp.Integer, resp.Null:
		return v, nil
	default:
		return SharedUnimplemented, nil
	}
}
