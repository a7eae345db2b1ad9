package resp

const (
	ProtoInlineMaxSize = 1024 * 64         // longest line accepted without a CRLF
	ProtoMaxBulkLen    = 1024 * 1024 * 512 // largest declared bulk length, 512MB
)

// Limits bounds what the decoder will accept from a peer. A zero field
// takes its default.
type Limits struct {
	MaxLineLen int
	MaxBulkLen int
}

func DefaultLimits() Limits {
	return Limits{
		MaxLineLen: ProtoInlineMaxSize,
		MaxBulkLen: ProtoMaxBulkLen,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxLineLen <= 0 {
		l.MaxLineLen = def.MaxLineLen
	}
	if l.MaxBulkLen <= 0 {
		l.MaxBulkLen = def.MaxBulkLen
	}
	return l
}
