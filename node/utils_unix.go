//go:build linux
// +build linux

package node

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsTemporaryError reports whether an accept error is transient, e.g. the
// process ran out of file descriptors or the peer aborted the handshake.
func IsTemporaryError(err error) bool {
	return errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ENOBUFS) ||
		errors.Is(err, unix.ENOMEM) ||
		errors.Is(err, unix.ECONNABORTED) ||
		errors.Is(err, unix.EINTR) ||
		errors.Is(err, unix.EAGAIN)
}
