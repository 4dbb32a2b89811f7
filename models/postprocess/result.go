// Package postprocess - Postprocessing utilities for detection model outputs.
package postprocess

import "github.com/nvr-ai/go-speedsign/images"

// Result represents a single raw detection candidate.
type Result struct {
	// The bounding box of the result, in source image pixels.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}
