package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-speedsign/detector"
	"github.com/nvr-ai/go-speedsign/inference/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
model:
  path: weights/best.onnx
  labels: data.yaml
  confidence_threshold: 0.35
  iou_threshold: 0.6
  input_size: 416
  session:
    provider: openvino
    intra_op_threads: 2
video:
  codec: avc1
  progress_every: 5
cache:
  max_entries: 64
log:
  level: debug
`)

	cfg := Load(path, nil)
	assert.Equal(t, "weights/best.onnx", cfg.Model.Path)
	assert.Equal(t, "data.yaml", cfg.Model.Labels)
	assert.Equal(t, detector.Params{Confidence: 0.35, IoU: 0.6}, cfg.Params())
	assert.Equal(t, 416, cfg.Model.InputSize)
	assert.Equal(t, providers.OpenVINOExecutionProvider, cfg.Model.Session.Provider)
	assert.Equal(t, 2, cfg.Model.Session.IntraOpNumThreads)
	assert.Equal(t, "avc1", cfg.Video.Codec)
	assert.Equal(t, 5, cfg.Video.ProgressEvery)
	assert.Equal(t, 100, cfg.Video.LogEvery, "unset keys keep their defaults")
	assert.Equal(t, 64, cfg.Cache.MaxEntries)
	assert.Equal(t, "debug", cfg.Log.Level)

	onnx := cfg.ONNX()
	assert.Equal(t, cfg.Model.Path, onnx.ModelPath)
	assert.Equal(t, 416, onnx.InputSize)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"), zap.New(core))

	assert.Equal(t, detector.DefaultParams(), cfg.Params())
	assert.Equal(t, DefaultModelPath, cfg.Model.Path)
	assert.Equal(t, 1, logs.FilterMessage("config load failed, using defaults").Len())
}

func TestLoadMalformedFileFallsBack(t *testing.T) {
	path := writeFile(t, "model:\n  confidence_threshold: 0.3\n  iou_threshold: [\n")
	cfg := Load(path, nil)
	assert.Equal(t, detector.DefaultParams(), cfg.Params())
}

func TestLoadOutOfRangeThresholds(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	path := writeFile(t, "model:\n  confidence_threshold: 1.5\n  iou_threshold: -0.2\nvideo:\n  codec: h264x\ncache:\n  max_entries: -3\n")

	cfg := Load(path, zap.New(core))
	assert.Equal(t, detector.DefaultParams(), cfg.Params())
	assert.Equal(t, "mp4v", cfg.Video.Codec)
	assert.Zero(t, cfg.Cache.MaxEntries)
	assert.Equal(t, 3, logs.Len())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvModel, "/srv/model.onnx")
	t.Setenv(EnvConfidence, "0.7")
	t.Setenv(EnvIoU, "not-a-number")
	t.Setenv(EnvRuntimeLib, "/usr/lib/libonnxruntime.so")
	t.Setenv(EnvProvider, "CUDA")

	path := writeFile(t, "model:\n  iou_threshold: 0.3\n")
	cfg := Load(path, nil)

	assert.Equal(t, "/srv/model.onnx", cfg.Model.Path)
	assert.Equal(t, detector.Params{Confidence: 0.7, IoU: 0.3}, cfg.Params())
	assert.Equal(t, "/usr/lib/libonnxruntime.so", cfg.Model.RuntimeLibrary)
	assert.Equal(t, providers.CUDAExecutionProvider, cfg.Model.Session.Provider)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvConfidence+"=0.25\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv(EnvConfidence)
	})

	cfg := Load("missing.yaml", nil)
	assert.Equal(t, float32(0.25), cfg.Model.ConfidenceThreshold)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.Log.Level = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
