// Package app - The operations a front-end drives: single images, image sets,
// video jobs and detection parameters.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvr-ai/go-speedsign/cache"
	"github.com/nvr-ai/go-speedsign/config"
	"github.com/nvr-ai/go-speedsign/detector"
	"github.com/nvr-ai/go-speedsign/images"
	"github.com/nvr-ai/go-speedsign/inference"
	"github.com/nvr-ai/go-speedsign/util"
	"github.com/nvr-ai/go-speedsign/video"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrUnreadableImage is returned when an image file cannot be decoded.
var ErrUnreadableImage = errors.New("cannot read image")

// App wires the detector, the result cache and the video pipeline around one
// shared set of detection parameters.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	engine   *detector.Engine
	settings *detector.Settings
	cache    *cache.Cache
	pipeline *video.Pipeline
	logbook  *LogBook

	mu  sync.Mutex
	set *util.ImageSet
}

// Open loads the model named in cfg and builds an App around it.
//
// A model that cannot be loaded is logged and the App runs without one: every
// detection then passes the image through unchanged.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var port inference.Port
	onnx, err := inference.NewONNXPort(cfg.ONNX(), logger.Named("inference"))
	if err != nil {
		logger.Sugar().Errorw("model unavailable, detection disabled", "path", cfg.Model.Path, "error", err)
	} else {
		port = onnx
	}

	a, err := New(cfg, port, logger)
	if err != nil {
		if port != nil {
			port.Close()
		}
		return nil, err
	}
	if port == nil {
		a.logbook.Add(video.LevelError, "Model not found: "+cfg.Model.Path)
	} else {
		a.logbook.Add(video.LevelInfo, "Model loaded: "+cfg.Model.Path)
	}
	return a, nil
}

// Option customizes New.
type Option func(*options)

type options struct {
	opener video.Opener
}

// WithOpener replaces the file-backed media opener used for video jobs.
func WithOpener(o video.Opener) Option {
	return func(opts *options) { opts.opener = o }
}

// New builds an App over an already loaded port. A nil port disables detection.
func New(cfg *config.Config, port inference.Port, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{opener: video.FileOpener{Codec: cfg.Video.Codec}}
	for _, opt := range opts {
		opt(&o)
	}

	engine := detector.NewEngine(port, logger.Named("detector"))
	settings := detector.NewSettings(cfg.Params())

	c, err := cache.New(engine, cache.Options{
		MaxEntries: cfg.Cache.MaxEntries,
		Logger:     logger.Named("cache"),
	})
	if err != nil {
		return nil, err
	}
	settings.Subscribe(func(detector.Params) { c.InvalidateAll() })

	pipeline := video.NewPipeline(engine, settings, video.Options{
		Opener:        o.opener,
		ProgressEvery: cfg.Video.ProgressEvery,
		LogEvery:      cfg.Video.LogEvery,
		Logger:        logger.Named("video"),
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		settings: settings,
		cache:    c,
		pipeline: pipeline,
		logbook:  NewLogBook(DefaultLogBookSize),
	}, nil
}

// ModelAvailable reports whether detections will be produced.
func (a *App) ModelAvailable() bool { return a.engine.Available() }

// LogBook returns the user-facing log.
func (a *App) LogBook() *LogBook { return a.logbook }

// Params returns the current detection parameters.
func (a *App) Params() detector.Params { return a.settings.Get() }

// CacheStats returns the result cache counters.
func (a *App) CacheStats() cache.Stats { return a.cache.Stats() }

// Detect runs the detector on img with the current parameters, bypassing the cache.
func (a *App) Detect(img gocv.Mat) detector.Result {
	return a.engine.Detect(img, a.settings.Get())
}

// GetOrCompute returns the cached result for key, detecting img on a miss.
func (a *App) GetOrCompute(key cache.Key, img gocv.Mat) (detector.Result, bool) {
	return a.cache.GetOrCompute(key, img, a.settings.Get())
}

// DetectFile reads an image file and returns its cached or fresh result.
//
// Returns:
//   - detector.Result: Owned by the caller.
//   - bool: True when the result came from the cache.
//   - error: ErrUnreadableImage if the file cannot be decoded.
func (a *App) DetectFile(path string) (detector.Result, bool, error) {
	key := cache.PathKey(path)

	img, err := images.ReadFile(path)
	defer img.Close()
	if err != nil {
		a.logbook.Add(video.LevelError, "Cannot read image: "+path)
		return detector.Result{}, false, errors.Wrap(ErrUnreadableImage, err.Error())
	}

	res, hit := a.cache.GetOrCompute(key, img, a.settings.Get())
	a.logbook.Add(video.LevelInfo, Summarize(res.Detections, hit))
	return res, hit, nil
}

// UpdateParameters replaces the detection thresholds. A change empties the cache.
//
// Returns:
//   - error: detector.ErrInvalidParams when a value is outside [0, 1].
func (a *App) UpdateParameters(confidence, iou float32) error {
	p := detector.Params{Confidence: confidence, IoU: iou}
	changed, err := a.settings.Set(p)
	if err != nil {
		return err
	}
	if changed {
		a.logbook.Add(video.LevelInfo, fmt.Sprintf("Parameters updated: confidence=%.2f, iou=%.2f", confidence, iou))
	}
	return nil
}

// ResetParameters restores 0.50 confidence and 0.45 IoU.
func (a *App) ResetParameters() {
	if a.settings.Reset() {
		a.logbook.Add(video.LevelInfo, "Parameters reset to defaults")
	}
}

// LoadImageSet lists the images in dir and makes them the current set.
// Results cached for the previous set are dropped.
func (a *App) LoadImageSet(dir string) (*util.ImageSet, error) {
	files, err := util.ListImageFiles(dir)
	if err != nil {
		a.logbook.Add(video.LevelError, "Cannot open folder: "+dir)
		return nil, err
	}

	set := util.NewImageSet(files)
	a.mu.Lock()
	a.set = set
	a.mu.Unlock()
	a.cache.InvalidateAll()

	if set.Len() == 0 {
		a.logbook.Add(video.LevelWarning, "No images found")
	} else {
		a.logbook.Add(video.LevelInfo, fmt.Sprintf("Loaded %d images", set.Len()))
	}
	return set, nil
}

// ImageSet returns the current image set, nil before LoadImageSet.
func (a *App) ImageSet() *util.ImageSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set
}

// ProcessVideo runs a video job on the calling goroutine.
//
// onProgress and onLog are called synchronously from the job; either may be nil.
func (a *App) ProcessVideo(
	ctx context.Context,
	inputPath, outputPath string,
	onProgress func(percent int),
	onLog func(level video.Level, message string),
) bool {
	sink := teeSink{a.logbook, video.FuncSink{OnProgress: onProgress, OnLog: onLog}}
	return a.pipeline.Process(ctx, inputPath, outputPath, sink)
}

// StartVideo runs a video job on its own goroutine and streams its events.
func (a *App) StartVideo(ctx context.Context, inputPath, outputPath string) *VideoJob {
	job := video.NewJob(inputPath, outputPath)
	events := make(chan video.Event, 64)
	vj := &VideoJob{Job: job, Events: events, done: make(chan struct{})}

	go func() {
		defer close(vj.done)
		defer close(events)
		vj.ok = a.pipeline.Run(ctx, job, teeSink{a.logbook, video.ChannelSink(events)})
	}()
	return vj
}

// Close releases the cache and the model.
func (a *App) Close() error {
	return multierr.Combine(a.cache.Close(), a.engine.Close())
}

// VideoJob is a video run in progress.
type VideoJob struct {
	// Job is safe to read once Wait returns.
	Job *video.Job
	// Events is closed when the job ends. It must be drained or the job stalls.
	Events <-chan video.Event

	done chan struct{}
	ok   bool
}

// Wait blocks until the job ends and reports whether it succeeded.
func (j *VideoJob) Wait() bool {
	<-j.done
	return j.ok
}

// Done is closed when the job ends.
func (j *VideoJob) Done() <-chan struct{} {
	return j.done
}

type teeSink []video.Sink

func (t teeSink) Emit(e video.Event) {
	for _, s := range t {
		s.Emit(e)
	}
}
