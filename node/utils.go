package node

import "strings"

// mapChars replaces every byte of from found in s with the byte at the same
// index in to.
func mapChars(s, from, to string) string {
	for i := 0; i < len(from); i++ {
		s = strings.ReplaceAll(s, string(from[i]), string(to[i]))
	}
	return s
}

// errorReply turns a Go error into text an Error frame can carry.
func errorReply(err error) string {
	msg := mapChars(err.Error(), "\r\n", "  ")
	if strings.HasPrefix(msg, "ERR ") {
		return msg
	}
	return "ERR " + msg
}
