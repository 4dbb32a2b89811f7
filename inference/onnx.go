// Package inference - ONNX Runtime adapter for YOLO detection models.
package inference

import (
	"os"

	"github.com/nvr-ai/go-speedsign/images"
	"github.com/nvr-ai/go-speedsign/inference/providers"
	"github.com/nvr-ai/go-speedsign/models"
	"github.com/nvr-ai/go-speedsign/models/postprocess"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DefaultInputSize is the square input used when the model has dynamic dimensions.
const DefaultInputSize = 640

// maxDetections mirrors the per-image cap of the ultralytics exporter.
const maxDetections = 300

// ONNXConfig configures an ONNXPort.
type ONNXConfig struct {
	// ModelPath is the .onnx file exported from a YOLOv8-style detector.
	ModelPath string
	// LabelsPath optionally overrides the class names stored in the model.
	LabelsPath string
	// RuntimeLibrary optionally points at the onnxruntime shared library.
	RuntimeLibrary string
	// InputSize is used for dynamic input dimensions. 0 means DefaultInputSize.
	InputSize int
	// Session tunes the onnxruntime session.
	Session providers.Options
}

// ONNXPort runs a YOLO model through onnxruntime.
type ONNXPort struct {
	session *Session
	classes *models.OutputClassSet
	layout  postprocess.YOLOLayout
	width   int
	height  int
	logger  *zap.Logger
}

// NewONNXPort loads a model and binds its tensors.
//
// Arguments:
//   - cfg: The model and runtime configuration.
//   - logger: The logger, nil for none.
//
// Returns:
//   - *ONNXPort: The loaded port.
//   - error: ErrModelNotFound if the model file is missing, or a load error.
func NewONNXPort(cfg ONNXConfig, logger *zap.Logger) (*ONNXPort, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Sugar()

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(ErrModelNotFound, "%s: %v", cfg.ModelPath, err)
	}
	if err := InitRuntime(cfg.RuntimeLibrary); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading model inputs and outputs")
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, errors.Errorf("expected one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}

	fallback := cfg.InputSize
	if fallback <= 0 {
		fallback = DefaultInputSize
	}
	width, height := inputSize(inputs[0].Dimensions, fallback)

	classes, err := loadClasses(cfg, log)
	if err != nil {
		return nil, err
	}

	layout, err := outputLayout(outputs[0].Dimensions, classes.Len(), width, height)
	if err != nil {
		return nil, err
	}
	if layout.NumClasses != classes.Len() {
		log.Warnw("model head and class names disagree",
			"head_classes", layout.NumClasses, "names", classes.Len())
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(height), int64(width)))
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	outShape := ort.NewShape(1, int64(4+layout.NumClasses), int64(layout.NumAnchors))
	if layout.RowMajor {
		outShape = ort.NewShape(1, int64(layout.NumAnchors), int64(4+layout.NumClasses))
	}
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	options, err := providers.SessionOptions(cfg.Session, logger)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "creating onnxruntime session")
	}

	log.Infow("model loaded",
		"path", cfg.ModelPath,
		"input", inputs[0].Name,
		"size", width,
		"classes", classes.Len(),
		"anchors", layout.NumAnchors,
		"provider", cfg.Session.Provider)

	return &ONNXPort{
		session: &Session{Session: session, Input: input, Output: output},
		classes: classes,
		layout:  layout,
		width:   width,
		height:  height,
		logger:  logger,
	}, nil
}

// Infer runs the model on a BGR frame.
func (p *ONNXPort) Infer(img gocv.Mat, confidence, iou float32) ([]postprocess.Result, error) {
	if p.session == nil {
		return nil, errors.New("port is closed")
	}
	if err := images.ToCHW(img, p.width, p.height, p.session.Input.GetData()); err != nil {
		return nil, errors.Wrap(err, "preparing input")
	}
	if err := p.session.Run(); err != nil {
		return nil, err
	}

	size := images.Size(img)
	candidates, err := postprocess.DecodeYOLO(p.session.Output.GetData(), postprocess.DecodeConfig{
		Layout:              p.layout,
		ScaleX:              float32(size.X) / float32(p.width),
		ScaleY:              float32(size.Y) / float32(p.height),
		ConfidenceThreshold: confidence,
	})
	if err != nil {
		return nil, err
	}
	return postprocess.ApplyGreedyNMS(candidates, postprocess.NMSConfig{
		IoUThreshold: iou,
		ClassAware:   true,
		MaxResults:   maxDetections,
	}), nil
}

// Classes returns the class names the model was loaded with.
func (p *ONNXPort) Classes() *models.OutputClassSet {
	return p.classes
}

// Close releases the session and its tensors.
func (p *ONNXPort) Close() error {
	if p.session == nil {
		return nil
	}
	runs, mean := p.session.Metrics()
	p.logger.Sugar().Debugw("closing model session", "runs", runs, "mean", mean)
	err := p.session.Close()
	p.session = nil
	return err
}

// loadClasses prefers an explicit labels file, then the names embedded in the
// model metadata, then the built-in speed-limit set.
func loadClasses(cfg ONNXConfig, log *zap.SugaredLogger) (*models.OutputClassSet, error) {
	if cfg.LabelsPath != "" {
		return models.LoadLabels(cfg.LabelsPath)
	}

	meta, err := ort.GetModelMetadata(cfg.ModelPath)
	if err != nil {
		log.Warnw("model metadata unreadable, using default classes", "error", err)
		return models.SpeedSignClasses, nil
	}
	defer meta.Destroy()

	value, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil || !ok {
		log.Infow("model carries no class names, using default classes")
		return models.SpeedSignClasses, nil
	}
	classes, err := models.ParseUltralyticsNames(value)
	if err != nil {
		log.Warnw("model class names malformed, using default classes", "error", err)
		return models.SpeedSignClasses, nil
	}
	return classes, nil
}

// inputSize reads width and height from an NCHW shape, replacing dynamic dims.
func inputSize(dims ort.Shape, fallback int) (width, height int) {
	width, height = fallback, fallback
	if len(dims) == 4 {
		if dims[3] > 0 {
			width = int(dims[3])
		}
		if dims[2] > 0 {
			height = int(dims[2])
		}
	}
	return width, height
}

// outputLayout works out the head layout from the output shape. The feature
// axis is the short one; dynamic dims are resolved from the class count and the
// three detection strides.
func outputLayout(dims ort.Shape, numClasses, width, height int) (postprocess.YOLOLayout, error) {
	if len(dims) != 3 {
		return postprocess.YOLOLayout{}, errors.Errorf("unexpected output rank %d", len(dims))
	}
	anchors := (width/8)*(height/8) + (width/16)*(height/16) + (width/32)*(height/32)

	a, b := int(dims[1]), int(dims[2])
	switch {
	case a <= 0 && b <= 0:
		return postprocess.YOLOLayout{NumClasses: numClasses, NumAnchors: anchors}, nil
	case a <= 0:
		a = anchors
	case b <= 0:
		b = anchors
	}

	if a <= b {
		if a <= 4 {
			return postprocess.YOLOLayout{}, errors.Errorf("output has no class scores: %v", dims)
		}
		return postprocess.YOLOLayout{NumClasses: a - 4, NumAnchors: b}, nil
	}
	if b <= 4 {
		return postprocess.YOLOLayout{}, errors.Errorf("output has no class scores: %v", dims)
	}
	return postprocess.YOLOLayout{NumClasses: b - 4, NumAnchors: a, RowMajor: true}, nil
}
