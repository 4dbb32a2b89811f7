package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecord(t *testing.T) {
	p := New(2)
	p.Record("infer", 10*time.Millisecond)
	p.Record("infer", 30*time.Millisecond)
	p.Record("infer", 50*time.Millisecond)
	p.Record("write", time.Millisecond)

	stats := p.Stats()
	require.Contains(t, stats, "infer")

	infer := stats["infer"]
	assert.Equal(t, int64(3), infer.Count)
	assert.Equal(t, 10*time.Millisecond, infer.Min)
	assert.Equal(t, 50*time.Millisecond, infer.Max)
	assert.Equal(t, 80*time.Millisecond, infer.Total)
	assert.Equal(t, 40*time.Millisecond, infer.Mean)

	assert.Equal(t, int64(1), stats["write"].Count)
}

func TestStartOperation(t *testing.T) {
	p := New(0)
	done := p.StartOperation("read")
	time.Sleep(2 * time.Millisecond)
	done()

	s := p.Stats()["read"]
	assert.Equal(t, int64(1), s.Count)
	assert.GreaterOrEqual(t, s.Max, 2*time.Millisecond)
	assert.Greater(t, p.Elapsed(), time.Duration(0))
}

func TestMarshalLogObject(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(0)
	p.Record("infer", time.Millisecond)

	zap.New(core).Info("timings", zap.Object("stages", p))

	require.Equal(t, 1, logs.Len())
	stages, ok := logs.All()[0].ContextMap()["stages"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, stages, "infer")
	assert.Contains(t, stages, "elapsed")
}
