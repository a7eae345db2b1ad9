package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fzft/go-mini-redis/resp"
)

type OutputMode uint8

const (
	OutputStandard OutputMode = iota
	OutputRaw
)

// parseLine turns one line of user input into a frame:
//
//	+text   simple string
//	-text   error
//	:n      integer
//	$-1     null (also "nil")
//	*...    rejected, arrays are not supported
//
// Anything else is sent as a bulk string. A blank line yields nil.
func parseLine(line string) (resp.Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	switch line[0] {
	case resp.TypeSimple:
		return resp.SimpleString{Value: line[1:]}, nil
	case resp.TypeError:
		return resp.Error{Message: line[1:]}, nil
	case resp.TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", line[1:])
		}
		return resp.Integer{Value: n}, nil
	case resp.TypeArray:
		return nil, resp.ErrUnsupported
	}

	if line == "$-1" || strings.EqualFold(line, "nil") {
		return resp.Null{}, nil
	}
	return resp.Bulk(line), nil
}

// formatReply renders a reply the way redis-cli does.
func formatReply(f resp.Frame, mode OutputMode) string {
	if mode == OutputRaw {
		switch v := f.(type) {
		case resp.SimpleString:
			return v.Value
		case resp.Error:
			return v.Message
		case resp.Integer:
			return strconv.FormatInt(v.Value, 10)
		case resp.Null:
			return ""
		case resp.BulkString:
			return string(v.Value)
		}
	}
	return f.String()
}
