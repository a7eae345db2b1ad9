package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger("debug"))
	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))

	assert.NoError(t, InitLogger("warn"))
	assert.False(t, Logger.Core().Enabled(zapcore.InfoLevel))
}

func TestInitLoggerBadLevel(t *testing.T) {
	assert.Error(t, InitLogger("loud"))
}
