//go:build !linux
// +build !linux

package node

import (
	"errors"
	"net"
)

// IsTemporaryError reports whether an accept error is transient.
func IsTemporaryError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
