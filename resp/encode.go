package resp

import (
	"bufio"
	"strconv"
	"strings"
)

// Encode returns the wire encoding of f.
func Encode(f Frame) ([]byte, error) {
	return AppendFrame(nil, f)
}

// AppendFrame appends the wire encoding of f to dst.
func AppendFrame(dst []byte, f Frame) ([]byte, error) {
	if err := validate(f); err != nil {
		return dst, err
	}

	switch v := f.(type) {
	case SimpleString:
		dst = append(dst, TypeSimple)
		dst = append(dst, v.Value...)
		dst = append(dst, CRLF...)
	case Error:
		dst = append(dst, TypeError)
		dst = append(dst, v.Message...)
		dst = append(dst, CRLF...)
	case Integer:
		dst = appendLongLongWithPrefix(dst, TypeInteger, v.Value)
	case Null:
		dst = append(dst, nullBlob...)
	case BulkString:
		dst = appendLongLongWithPrefix(dst, TypeBlob, int64(len(v.Value)))
		dst = append(dst, v.Value...)
		dst = append(dst, CRLF...)
	}
	return dst, nil
}

// WriteFrame writes f to w without flushing. Nothing is written when f
// cannot be encoded.
func WriteFrame(w *bufio.Writer, f Frame) error {
	if err := validate(f); err != nil {
		return err
	}

	// bufio.Writer errors are sticky, the last write reports any failure.
	var err error
	switch v := f.(type) {
	case SimpleString:
		w.WriteByte(TypeSimple)
		w.WriteString(v.Value)
		_, err = w.WriteString(CRLF)
	case Error:
		w.WriteByte(TypeError)
		w.WriteString(v.Message)
		_, err = w.WriteString(CRLF)
	case Integer:
		_, err = w.Write(appendLongLongWithPrefix(w.AvailableBuffer(), TypeInteger, v.Value))
	case Null:
		_, err = w.WriteString(nullBlob)
	case BulkString:
		w.Write(appendLongLongWithPrefix(w.AvailableBuffer(), TypeBlob, int64(len(v.Value))))
		w.Write(v.Value)
		_, err = w.WriteString(CRLF)
	}
	return err
}

func validate(f Frame) error {
	switch v := f.(type) {
	case SimpleString:
		if strings.ContainsAny(v.Value, CRLF) {
			return ErrInvalidFrame
		}
	case Error:
		if strings.ContainsAny(v.Message, CRLF) {
			return ErrInvalidFrame
		}
	case Integer, Null, BulkString:
	case Array:
		return ErrUnsupported
	default:
		return ErrInvalidFrame
	}
	return nil
}

// appendLongLongWithPrefix emits <prefix><decimal>\r\n. Negative values
// carry a leading minus sign.
func appendLongLongWithPrefix(dst []byte, prefix byte, ll int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, ll, 10)
	return append(dst, CRLF...)
}
