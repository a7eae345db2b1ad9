package resp

import (
	"fmt"
	"strconv"
)

const CRLF string = "\r\n"

// Types equivalent to RESP version 2
const (
	TypeArray   byte = '*'
	TypeBlob    byte = '$'
	TypeSimple  byte = '+'
	TypeError   byte = '-'
	TypeInteger byte = ':'
)

// nullBlob is the RESP2 null bulk string. It is the only encoding of Null.
const nullBlob = "$-1\r\n"

// Frame is one complete protocol message. The set of implementations is
// closed: SimpleString, Error, Integer, Null, BulkString and Array.
type Frame interface {
	fmt.Stringer
	frame()
}

type SimpleString struct {
	Value string
}

type Error struct {
	Message string
}

type Integer struct {
	Value int64
}

type Null struct {
}

// BulkString is a length-prefixed, binary safe payload.
type BulkString struct {
	Value []byte
}

// Array is an ordered sequence of frames. Its codec is not supported yet,
// every Check, Parse and Encode of an Array returns ErrUnsupported.
type Array struct {
	Elements []Frame
}

func (SimpleString) frame() {}
func (Error) frame()        {}
func (Integer) frame()      {}
func (Null) frame()         {}
func (BulkString) frame()   {}
func (Array) frame()        {}

func (s SimpleString) String() string { return s.Value }

func (e Error) String() string { return "(error) " + e.Message }

func (i Integer) String() string { return "(integer) " + strconv.FormatInt(i.Value, 10) }

func (Null) String() string { return "(nil)" }

func (b BulkString) String() string { return strconv.Quote(string(b.Value)) }

func (a Array) String() string {
	return fmt.Sprintf("(array) %d elements", len(a.Elements))
}

// Bulk is a shorthand for building a BulkString from text.
func Bulk(s string) BulkString {
	return BulkString{Value: []byte(s)}
}

// TypeOf returns the wire tag of a frame. Null shares the blob tag.
func TypeOf(f Frame) byte {
	switch f.(type) {
	case SimpleString:
		return TypeSimple
	case Error:
		return TypeError
	case Integer:
		return TypeInteger
	case Null, BulkString:
		return TypeBlob
	case Array:
		return TypeArray
	default:
		return 0
	}
}
