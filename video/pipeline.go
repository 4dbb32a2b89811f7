// Package video - Batch detection over video files.
package video

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-speedsign/detector"
	"github.com/nvr-ai/go-speedsign/profiler"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	// DefaultProgressEvery is the frame interval between progress events.
	DefaultProgressEvery = 10
	// DefaultLogEvery is the frame interval between summary log events.
	DefaultLogEvery = 100
)

// State is the lifecycle stage of a Job.
type State int

const (
	StatePending State = iota
	StateOpening
	StateStreaming
	StateFinalizing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Job is one video run. Its fields are written only by the goroutine running
// it; read them after the run returns.
type Job struct {
	ID         string
	InputPath  string
	OutputPath string

	Width       int
	Height      int
	FPS         float64
	TotalFrames int

	FramesProcessed int
	DetectionsTotal int
	State           State
	Err             error
}

// NewJob creates a pending job with a fresh ID.
func NewJob(inputPath, outputPath string) *Job {
	return &Job{ID: uuid.NewString(), InputPath: inputPath, OutputPath: outputPath}
}

// Detector annotates one frame.
type Detector interface {
	Detect(img gocv.Mat, p detector.Params) detector.Result
}

// Options configures a Pipeline.
type Options struct {
	// Opener opens media. Nil means FileOpener with DefaultCodec.
	Opener        Opener
	ProgressEvery int
	LogEvery      int
	Logger        *zap.Logger
}

// Pipeline runs every frame of a video through a Detector.
type Pipeline struct {
	engine   Detector
	settings *detector.Settings
	opener   Opener

	progressEvery int
	logEvery      int
	logger        *zap.Logger
}

// NewPipeline creates a Pipeline.
//
// Each frame is detected with the Params current in settings at the time the
// frame is processed. A nil settings uses the defaults.
func NewPipeline(engine Detector, settings *detector.Settings, opts Options) *Pipeline {
	p := &Pipeline{
		engine:        engine,
		settings:      settings,
		opener:        opts.Opener,
		progressEvery: opts.ProgressEvery,
		logEvery:      opts.LogEvery,
		logger:        opts.Logger,
	}
	if p.settings == nil {
		p.settings = detector.NewSettings(detector.DefaultParams())
	}
	if p.opener == nil {
		p.opener = FileOpener{}
	}
	if p.progressEvery <= 0 {
		p.progressEvery = DefaultProgressEvery
	}
	if p.logEvery <= 0 {
		p.logEvery = DefaultLogEvery
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Process annotates inputPath into outputPath.
//
// Arguments:
//   - ctx: Cancels the job between frames.
//   - inputPath: The source video.
//   - outputPath: The annotated video to write.
//   - sink: Receives progress and log events. Nil discards them.
//
// Returns:
//   - bool: True when every frame was processed and the output was finalized.
func (p *Pipeline) Process(ctx context.Context, inputPath, outputPath string, sink Sink) bool {
	return p.Run(ctx, NewJob(inputPath, outputPath), sink)
}

// Run processes job, updating it as frames go by.
func (p *Pipeline) Run(ctx context.Context, job *Job, sink Sink) bool {
	if sink == nil {
		sink = discardSink{}
	}
	r := &run{
		Pipeline: p,
		job:      job,
		sink:     sink,
		prof:     profiler.New(0),
		log:      p.logger.Sugar().With("job", job.ID),
	}
	return r.execute(ctx)
}

type run struct {
	*Pipeline
	job  *Job
	sink Sink
	prof *profiler.Profiler
	log  *zap.SugaredLogger
}

func (r *run) execute(ctx context.Context) bool {
	job := r.job
	job.State = StateOpening

	src, err := r.opener.OpenSource(job.InputPath)
	if err != nil {
		return r.fail(err)
	}
	props := src.Props()
	job.Width, job.Height, job.FPS, job.TotalFrames = props.Width, props.Height, props.FPS, props.FrameCount

	dst, err := r.opener.OpenWriter(job.OutputPath, props)
	if err != nil {
		return r.fail(multierr.Append(err, src.Close()))
	}

	r.emitLog(LevelInfo, fmt.Sprintf("Processing video: %dx%d @ %gfps, %d frames",
		props.Width, props.Height, props.FPS, props.FrameCount))

	job.State = StateStreaming
	err = r.stream(ctx, src, dst)

	job.State = StateFinalizing
	if cerr := multierr.Combine(src.Close(), dst.Close()); cerr != nil {
		err = multierr.Append(err, errors.Wrap(cerr, "releasing media"))
	}
	if err != nil {
		return r.fail(err)
	}

	job.State = StateCompleted
	r.emitLog(LevelSuccess, fmt.Sprintf("Successfully processed %d frames (%d detections)",
		job.FramesProcessed, job.DetectionsTotal))
	r.log.Infow("video completed",
		"input", job.InputPath,
		"output", job.OutputPath,
		"frames", job.FramesProcessed,
		"detections", job.DetectionsTotal,
		zap.Object("stages", r.prof))
	return true
}

// stream runs until end of stream, cancellation or the first failure.
func (r *run) stream(ctx context.Context, src Source, dst Writer) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Errorf("frame %d: %v", r.job.FramesProcessed+1, v)
		}
	}()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "stopped after %d frames", r.job.FramesProcessed)
		}

		doneRead := r.prof.StartOperation("read")
		ok := src.Read(&frame)
		doneRead()
		if !ok {
			return nil
		}

		doneDetect := r.prof.StartOperation("detect")
		res := r.engine.Detect(frame, r.settings.Get())
		doneDetect()

		doneWrite := r.prof.StartOperation("write")
		werr := dst.Write(res.Image)
		doneWrite()
		detections := len(res.Detections)
		res.Close()
		if werr != nil {
			return errors.Wrapf(werr, "writing frame %d", r.job.FramesProcessed+1)
		}

		r.job.FramesProcessed++
		r.job.DetectionsTotal += detections
		r.report()
	}
}

func (r *run) report() {
	job := r.job
	n := job.FramesProcessed

	if n%r.progressEvery == 0 && job.TotalFrames > 0 {
		percent := min(n*100/job.TotalFrames, 100)
		r.sink.Emit(Event{Kind: KindProgress, Job: job.ID, Percent: percent, Frame: n, Time: time.Now()})
	}
	if n%r.logEvery == 0 {
		r.emitLog(LevelInfo, fmt.Sprintf("Processed %d/%d frames, %d detections so far",
			n, job.TotalFrames, job.DetectionsTotal))
	}
}

func (r *run) fail(err error) bool {
	r.job.State = StateFailed
	r.job.Err = err
	r.emitLog(LevelError, "Video processing failed: "+err.Error())
	r.log.Errorw("video failed",
		"input", r.job.InputPath,
		"output", r.job.OutputPath,
		"frames", r.job.FramesProcessed,
		"error", err)
	return false
}

func (r *run) emitLog(level Level, msg string) {
	r.sink.Emit(Event{
		Kind:    KindLog,
		Job:     r.job.ID,
		Level:   level,
		Message: msg,
		Frame:   r.job.FramesProcessed,
		Time:    time.Now(),
	})
}
