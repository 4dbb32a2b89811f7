package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-speedsign/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// YOLOLayout describes how a YOLO detection head lays out its output.
//
// Ultralytics YOLOv8/YOLO11 exports emit (1, 4+classes, anchors): one column per
// anchor, rows cx, cy, w, h followed by one score per class. Some exporters
// transpose that to (1, anchors, 4+classes), which is RowMajor.
type YOLOLayout struct {
	NumClasses int
	NumAnchors int
	RowMajor   bool
}

// DecodeConfig maps model-space boxes back to source image pixels.
type DecodeConfig struct {
	Layout YOLOLayout
	// ScaleX and ScaleY are source pixels per model input pixel.
	ScaleX, ScaleY float32
	// ConfidenceThreshold drops candidates whose best class score is lower.
	ConfidenceThreshold float32
}

// DecodeYOLO turns a raw YOLO head output into candidate results.
//
// Arguments:
//   - output: The flat output tensor data.
//   - cfg: Layout, scaling and confidence threshold.
//
// Returns:
//   - []Result: Candidates above the threshold, in anchor order, before NMS.
//   - error: An error if the output does not match the layout.
func DecodeYOLO(output []float32, cfg DecodeConfig) ([]Result, error) {
	features := 4 + cfg.Layout.NumClasses
	anchors := cfg.Layout.NumAnchors
	if cfg.Layout.NumClasses <= 0 || anchors <= 0 {
		return nil, errors.Errorf("invalid layout: %d classes, %d anchors", cfg.Layout.NumClasses, anchors)
	}
	if len(output) != features*anchors {
		return nil, errors.Errorf("output holds %d values, layout needs %d", len(output), features*anchors)
	}

	rows := make([]float32, len(output))
	copy(rows, output)
	if !cfg.Layout.RowMajor {
		// (features, anchors) -> (anchors, features) so each candidate is contiguous.
		t := tensor.New(tensor.WithShape(features, anchors), tensor.WithBacking(rows))
		if err := t.T(); err != nil {
			return nil, errors.Wrap(err, "transposing output")
		}
		if err := t.Transpose(); err != nil {
			return nil, errors.Wrap(err, "transposing output")
		}
		data, ok := t.Data().([]float32)
		if !ok {
			return nil, errors.New("unexpected tensor backing type")
		}
		rows = data
	}

	results := make([]Result, 0, 16)
	for a := 0; a < anchors; a++ {
		row := rows[a*features : (a+1)*features]

		classID := 0
		best := float32(-1)
		for c, score := range row[4:] {
			if score > best {
				best = score
				classID = c
			}
		}
		if best < cfg.ConfidenceThreshold {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		results = append(results, Result{
			Box: images.Rect{
				X1: int(math32.Round((cx - w/2) * cfg.ScaleX)),
				Y1: int(math32.Round((cy - h/2) * cfg.ScaleY)),
				X2: int(math32.Round((cx + w/2) * cfg.ScaleX)),
				Y2: int(math32.Round((cy + h/2) * cfg.ScaleY)),
			},
			Score: math32.Min(math32.Max(best, 0), 1),
			Class: classID,
		})
	}
	return results, nil
}
