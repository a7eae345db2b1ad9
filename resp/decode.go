package resp

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// decoder walks one frame starting at buf[0]. Check and Parse both run it,
// the only difference being whether values are materialized, so the number
// of bytes they consume is always the same.
type decoder struct {
	buf         []byte
	pos         int
	limits      Limits
	materialize bool
}

// Check reports whether buf starts with one complete, well formed frame and
// returns its length in bytes. It returns ErrIncomplete when more bytes are
// needed, an error matching ErrMalformed when the bytes can never form a
// frame, and ErrUnsupported for arrays. buf is never modified.
func Check(buf []byte, limits Limits) (int, error) {
	d := decoder{buf: buf, limits: limits.withDefaults()}
	if _, err := d.next(); err != nil {
		return 0, err
	}
	return d.pos, nil
}

// Parse decodes the frame at the start of buf and returns it together with
// the number of bytes it occupies. Values are copied out of buf.
func Parse(buf []byte, limits Limits) (Frame, int, error) {
	d := decoder{buf: buf, limits: limits.withDefaults(), materialize: true}
	f, err := d.next()
	if err != nil {
		return nil, 0, err
	}
	return f, d.pos, nil
}

func (d *decoder) next() (Frame, error) {
	if d.pos >= len(d.buf) {
		return nil, ErrIncomplete
	}

	tag := d.buf[d.pos]
	switch tag {
	case TypeSimple, TypeError:
		d.pos++
		line, err := d.readLine()
		if err != nil {
			return nil, err
		}
		if bytes.IndexByte(line, '\n') >= 0 || bytes.IndexByte(line, '\r') >= 0 {
			return nil, malformed(d.pos, "line contains a bare CR or LF")
		}
		if !utf8.Valid(line) {
			return nil, malformed(d.pos, "line is not valid UTF-8")
		}
		if !d.materialize {
			return nil, nil
		}
		if tag == TypeError {
			return Error{Message: string(line)}, nil
		}
		return SimpleString{Value: string(line)}, nil

	case TypeInteger:
		d.pos++
		start := d.pos
		line, err := d.readLine()
		if err != nil {
			return nil, err
		}
		n, ok := parseInteger(line)
		if !ok {
			return nil, malformed(start, "invalid integer %q", line)
		}
		if !d.materialize {
			return nil, nil
		}
		return Integer{Value: n}, nil

	case TypeBlob:
		d.pos++
		start := d.pos
		line, err := d.readLine()
		if err != nil {
			return nil, err
		}
		if string(line) == "-1" {
			if !d.materialize {
				return nil, nil
			}
			return Null{}, nil
		}
		n, ok := parseLength(line)
		if !ok {
			return nil, malformed(start, "invalid bulk length %q", line)
		}
		if n > int64(d.limits.MaxBulkLen) {
			return nil, malformed(start, "invalid bulk length %d, limit is %d", n, d.limits.MaxBulkLen)
		}
		size := int(n)
		if len(d.buf)-d.pos < size+2 {
			return nil, ErrIncomplete
		}
		if d.buf[d.pos+size] != '\r' || d.buf[d.pos+size+1] != '\n' {
			return nil, malformed(d.pos+size, "bulk payload not terminated by CRLF")
		}
		var value []byte
		if d.materialize {
			value = make([]byte, size)
			copy(value, d.buf[d.pos:d.pos+size])
		}
		d.pos += size + 2
		if !d.materialize {
			return nil, nil
		}
		return BulkString{Value: value}, nil

	case TypeArray:
		return nil, ErrUnsupported

	default:
		return nil, malformed(d.pos, "invalid frame type byte %q", tag)
	}
}

// readLine returns the bytes up to the next CRLF and moves past it.
func (d *decoder) readLine() ([]byte, error) {
	rest := d.buf[d.pos:]
	i := bytes.Index(rest, []byte(CRLF))
	if i < 0 {
		if j := bytes.IndexByte(rest, '\n'); j >= 0 {
			return nil, malformed(d.pos+j, "line terminated by a bare LF")
		}
		// a trailing CR may still be completed by the next read
		if len(rest) > d.limits.MaxLineLen+1 {
			return nil, malformed(d.pos, "too big line, limit is %d", d.limits.MaxLineLen)
		}
		return nil, ErrIncomplete
	}
	if i > d.limits.MaxLineLen {
		return nil, malformed(d.pos, "too big line, limit is %d", d.limits.MaxLineLen)
	}
	d.pos += i + 2
	return rest[:i], nil
}

// parseInteger accepts an optional minus sign followed by decimal digits.
func parseInteger(b []byte) (int64, bool) {
	digits := b
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if !isDigits(digits) {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

// parseLength accepts unsigned decimal digits only.
func parseLength(b []byte) (int64, bool) {
	if !isDigits(b) {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
