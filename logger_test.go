package asyncevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talostrading/asyncevent/aeopts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerLevels(t *testing.T) {
	assert := assert.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))

	log.Debugf("debug %d", 1)
	log.Infof("info %d", 2)
	log.Noticef("notice %d", 3)
	log.Warningf("warning %d", 4)
	log.Errorf("error %d", 5)

	entries := logs.AllUntimed()
	assert.Len(entries, 5)

	levels := []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
	}
	for i, entry := range entries {
		assert.Equal(levels[i], entry.Level)
	}
	assert.Equal("notice 3", entries[2].Message)
	assert.Equal("notice", entries[2].ContextMap()["tier"])
	assert.Empty(entries[1].ContextMap())
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	log.Errorf("discarded %s", "message")

	assert.NotNil(t, loggerFrom(nil))
	assert.NotNil(t, loggerFrom([]aeopts.Option{WithLogger(nil)}))
}
