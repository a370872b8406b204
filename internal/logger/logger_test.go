package logger

import (
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nominatim-indexer/internal/conf"
)

func TestLogger_Log(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := log.NewHelper(log.With(NewZapLogger(zap.New(core)), "module", "test"))

	h.Infof("imported %d documents", 5)
	h.Warnw("msg", "slow", "odd")
	h.Debug("details")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "imported 5 documents", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "test", entries[0].ContextMap()["module"])
	assert.Equal(t, "slow", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "KEYVALS UNPAIRED", entries[1].ContextMap()["odd"])
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, zapLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, zapLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, zapLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	l, cleanup, err := NewLogger(&conf.Log{Level: "warn", Format: "console"}, "nominatimctl", "test")
	require.NoError(t, err)
	defer cleanup()
	assert.NoError(t, l.Log(log.LevelInfo, "msg", "filtered"))
}
