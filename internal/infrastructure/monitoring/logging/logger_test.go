package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapFields_TypedConstructors(t *testing.T) {
	fields := []Field{
		String("s", "v"),
		Int("i", 7),
		Int64("i64", 9),
		Float64("f", 1.5),
		Bool("b", true),
		Duration("d", 2*time.Second),
		Err(errors.New("boom")),
		Any("any", struct{ X int }{1}),
	}
	zf := toZapFields(fields)
	require.Len(t, zf, len(fields))
	assert.Equal(t, "s", zf[0].Key)
	assert.Equal(t, "error", zf[6].Key)
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNewLoggerFromCore_EmitsEntries(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("compile complete", String("property", "1 High St"), Int("pages", 9))
	log.Warn("slow compile", Duration("took", 4*time.Second))

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "compile complete", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "1 High St", entries[0].ContextMap()["property"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestWith_ChildCarriesFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).With(String("component", "selector"))

	log.Debug("recomputed")
	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "selector", entries[0].ContextMap()["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestDefault_ReplacedBySetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	core, observed := observer.New(zapcore.InfoLevel)
	SetDefault(NewLoggerFromCore(core))
	Default().Info("hello")
	assert.Equal(t, 1, observed.Len())

	// nil is ignored
	SetDefault(nil)
	Default().Info("again")
	assert.Equal(t, 2, observed.Len())
}
