package detector

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-speedsign/images"
	"github.com/nvr-ai/go-speedsign/inference"
	"github.com/nvr-ai/go-speedsign/models"
	"github.com/nvr-ai/go-speedsign/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Engine turns a frame into an annotated Result.
//
// Detect never fails: a frame it cannot use, a missing model or an inference
// error all yield a copy of the input with no detections. Calls into the port
// are serialized, so an Engine may be shared between goroutines.
type Engine struct {
	port   inference.Port
	mu     sync.Mutex
	logger *zap.Logger
}

// NewEngine wraps port. A nil port gives an Engine that passes frames through.
func NewEngine(port inference.Port, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{port: port, logger: logger}
}

// Available reports whether a model is loaded.
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port != nil
}

// Classes returns the class names of the loaded model, nil without one.
func (e *Engine) Classes() *models.OutputClassSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.port == nil {
		return nil
	}
	return e.port.Classes()
}

// Detect runs the model on img with the thresholds in p.
//
// img is never modified. The returned Result owns a new Mat of the same size.
//
// Arguments:
//   - img: A BGR frame.
//   - p: Confidence and IoU thresholds.
//
// Returns:
//   - Result: The annotated copy and the detections kept.
func (e *Engine) Detect(img gocv.Mat, p Params) Result {
	if !images.IsColorRaster(img) {
		e.logger.Sugar().Debugw("skipping unusable frame", "empty", img.Empty(), "type", img.Type())
		return Result{Image: img.Clone()}
	}

	raw, classes, loaded, err := e.infer(img, p)
	if !loaded {
		return Result{Image: img.Clone()}
	}
	if err != nil {
		e.logger.Sugar().Errorw("inference failed", "error", err)
		return Result{Image: img.Clone()}
	}

	size := images.Size(img)
	detections := make([]Detection, 0, len(raw))
	for _, r := range raw {
		if r.Score < p.Confidence {
			continue
		}
		box, ok := r.Box.ClampTo(size.X, size.Y)
		if !ok {
			continue
		}

		d := Detection{
			Box:        box.Rectangle(),
			Confidence: math32.Min(math32.Max(r.Score, 0), 1),
			ClassID:    r.Class,
			ClassName:  classes.Name(r.Class),
		}
		if v, ok := ParseSpeedLimit(d.ClassName); ok {
			d.SpeedLimit = &v
		}
		detections = append(detections, d)
	}

	out := img.Clone()
	Annotate(&out, detections)
	return Result{Image: out, Detections: detections}
}

// infer runs the port under the lock. A panicking port is reported as an error.
func (e *Engine) infer(img gocv.Mat, p Params) (raw []postprocess.Result, classes *models.OutputClassSet, loaded bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.port == nil {
		return nil, nil, false, nil
	}
	defer func() {
		if v := recover(); v != nil {
			raw, loaded, err = nil, true, errors.Errorf("inference panicked: %v", v)
		}
	}()

	raw, err = e.port.Infer(img, p.Confidence, p.IoU)
	classes = e.port.Classes()
	return raw, classes, true, err
}

// Close releases the model.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.port == nil {
		return nil
	}
	err := e.port.Close()
	e.port = nil
	return err
}
