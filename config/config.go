// Package config - Settings file and environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-speedsign/detector"
	"github.com/nvr-ai/go-speedsign/inference"
	"github.com/nvr-ai/go-speedsign/inference/providers"
	"github.com/nvr-ai/go-speedsign/video"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where Load looks when no path is given.
	DefaultPath = "config/settings.yaml"
	// DefaultModelPath is the exported detector weights.
	DefaultModelPath = "models/speed_limit_recog/weights/best.onnx"
)

// Environment variables read after the settings file.
const (
	EnvModel      = "SPEEDSIGN_MODEL"
	EnvLabels     = "SPEEDSIGN_LABELS"
	EnvConfidence = "SPEEDSIGN_CONFIDENCE"
	EnvIoU        = "SPEEDSIGN_IOU"
	EnvRuntimeLib = "SPEEDSIGN_ORT_LIB"
	EnvProvider   = "SPEEDSIGN_PROVIDER"
	EnvLogLevel   = "SPEEDSIGN_LOG_LEVEL"
)

// Config is the full application configuration.
type Config struct {
	Model ModelConfig `yaml:"model"`
	Video VideoConfig `yaml:"video"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// ModelConfig selects the detector and its thresholds.
type ModelConfig struct {
	Path                string            `yaml:"path"`
	Labels              string            `yaml:"labels"`
	ConfidenceThreshold float32           `yaml:"confidence_threshold"`
	IoUThreshold        float32           `yaml:"iou_threshold"`
	InputSize           int               `yaml:"input_size"`
	RuntimeLibrary      string            `yaml:"runtime_library"`
	Session             providers.Options `yaml:"session"`
}

// VideoConfig tunes the batch pipeline.
type VideoConfig struct {
	Codec         string `yaml:"codec"`
	ProgressEvery int    `yaml:"progress_every"`
	LogEvery      int    `yaml:"log_every"`
}

// CacheConfig bounds the result cache. MaxEntries 0 is unbounded.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Path:                DefaultModelPath,
			ConfidenceThreshold: detector.DefaultConfidence,
			IoUThreshold:        detector.DefaultIoU,
			InputSize:           inference.DefaultInputSize,
			Session:             providers.DefaultOptions(),
		},
		Video: VideoConfig{
			Codec:         video.DefaultCodec,
			ProgressEvery: video.DefaultProgressEvery,
			LogEvery:      video.DefaultLogEvery,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the settings file at path, then applies .env and environment
// overrides.
//
// Load never fails: a missing or malformed file, or an out-of-range value, is
// logged as a warning and the default used instead.
//
// Arguments:
//   - path: The YAML settings file. Empty means DefaultPath.
//   - logger: Receives fallback warnings. Nil discards them.
//
// Returns:
//   - *Config: The effective configuration.
func Load(path string, logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Sugar()
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		log.Warnw("config load failed, using defaults", "path", path, "error", err)
		cfg = Default()
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnw("ignoring unreadable .env file", "error", err)
	}
	cfg.applyEnv(log)
	cfg.sanitize(log)
	return cfg
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}

func (c *Config) applyEnv(log *zap.SugaredLogger) {
	if v := os.Getenv(EnvModel); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv(EnvLabels); v != "" {
		c.Model.Labels = v
	}
	if v := os.Getenv(EnvRuntimeLib); v != "" {
		c.Model.RuntimeLibrary = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.Model.Session.Provider = providers.Provider(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	c.Model.ConfidenceThreshold = envFloat(log, EnvConfidence, c.Model.ConfidenceThreshold)
	c.Model.IoUThreshold = envFloat(log, EnvIoU, c.Model.IoUThreshold)
}

func envFloat(log *zap.SugaredLogger, key string, fallback float32) float32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		log.Warnw("ignoring malformed environment value", "key", key, "value", v)
		return fallback
	}
	return float32(f)
}

func (c *Config) sanitize(log *zap.SugaredLogger) {
	def := Default()

	p := c.Params()
	if err := (detector.Params{Confidence: p.Confidence, IoU: def.Model.IoUThreshold}).Validate(); err != nil {
		log.Warnw("confidence threshold out of range, using default", "value", p.Confidence)
		c.Model.ConfidenceThreshold = def.Model.ConfidenceThreshold
	}
	if err := (detector.Params{Confidence: def.Model.ConfidenceThreshold, IoU: p.IoU}).Validate(); err != nil {
		log.Warnw("iou threshold out of range, using default", "value", p.IoU)
		c.Model.IoUThreshold = def.Model.IoUThreshold
	}

	provider, err := providers.ParseProvider(string(c.Model.Session.Provider))
	if err != nil {
		log.Warnw("unknown execution provider, using cpu", "error", err)
		provider = providers.CPUExecutionProvider
	}
	c.Model.Session.Provider = provider

	if c.Model.Path == "" {
		c.Model.Path = def.Model.Path
	}
	if c.Model.InputSize <= 0 {
		c.Model.InputSize = def.Model.InputSize
	}
	if c.Video.Codec == "" {
		c.Video.Codec = def.Video.Codec
	}
	if len(c.Video.Codec) != 4 {
		log.Warnw("codec must be a fourcc, using default", "value", c.Video.Codec)
		c.Video.Codec = def.Video.Codec
	}
	if c.Video.ProgressEvery <= 0 {
		c.Video.ProgressEvery = def.Video.ProgressEvery
	}
	if c.Video.LogEvery <= 0 {
		c.Video.LogEvery = def.Video.LogEvery
	}
	if c.Cache.MaxEntries < 0 {
		c.Cache.MaxEntries = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Params returns the configured detection thresholds.
func (c *Config) Params() detector.Params {
	return detector.Params{Confidence: c.Model.ConfidenceThreshold, IoU: c.Model.IoUThreshold}
}

// ONNX returns the inference configuration.
func (c *Config) ONNX() inference.ONNXConfig {
	return inference.ONNXConfig{
		ModelPath:      c.Model.Path,
		LabelsPath:     c.Model.Labels,
		RuntimeLibrary: c.Model.RuntimeLibrary,
		InputSize:      c.Model.InputSize,
		Session:        c.Model.Session,
	}
}

// Logger builds the process logger.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", c.Log.Level)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
