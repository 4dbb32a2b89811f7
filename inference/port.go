package inference

import (
	"github.com/nvr-ai/go-speedsign/models"
	"github.com/nvr-ai/go-speedsign/models/postprocess"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrModelNotFound is returned when the model file does not exist.
var ErrModelNotFound = errors.New("model not found")

// Port is the boundary to whatever runs the detection model.
//
// Infer returns raw candidates in source image pixels, already filtered by
// confidence and suppressed by NMS at the given IoU, in the model's own order.
// Implementations need not be safe for concurrent use; callers serialize.
type Port interface {
	Infer(img gocv.Mat, confidence, iou float32) ([]postprocess.Result, error)
	Classes() *models.OutputClassSet
	Close() error
}
