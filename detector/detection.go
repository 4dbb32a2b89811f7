// Package detector - Speed-limit sign detection and annotation.
package detector

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// Detection is one located sign.
type Detection struct {
	// Box is in source image pixels, within the image bounds, never empty.
	Box image.Rectangle
	// Confidence is in [0, 1].
	Confidence float32
	ClassID    int
	ClassName  string
	// SpeedLimit is set when ClassName is a base-10 integer.
	SpeedLimit *int
}

// Label returns the caption drawn above the box.
func (d Detection) Label() string {
	if d.SpeedLimit != nil {
		return fmt.Sprintf("%d km/h (%.2f)", *d.SpeedLimit, d.Confidence)
	}
	return fmt.Sprintf("%s (%.2f)", d.ClassName, d.Confidence)
}

// ParseSpeedLimit reads a class name such as "50" as a speed limit.
func ParseSpeedLimit(name string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(name))
	if err != nil {
		return 0, false
	}
	return v, true
}

// Tier buckets a confidence for colouring.
type Tier int

const (
	// TierLow is below 0.6.
	TierLow Tier = iota
	// TierMedium is 0.6 up to 0.8.
	TierMedium
	// TierHigh is 0.8 and above.
	TierHigh
)

// TierOf returns the tier of a confidence.
func TierOf(confidence float32) Tier {
	switch {
	case confidence >= 0.8:
		return TierHigh
	case confidence >= 0.6:
		return TierMedium
	default:
		return TierLow
	}
}

// Color returns the box colour of the tier.
func (t Tier) Color() color.RGBA {
	switch t {
	case TierHigh:
		return color.RGBA{R: 0, G: 255, B: 0, A: 255}
	case TierMedium:
		return color.RGBA{R: 255, G: 165, B: 0, A: 255}
	default:
		return color.RGBA{R: 255, G: 100, B: 0, A: 255}
	}
}

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Result is an annotated image with the detections drawn on it.
//
// A Result owns its Image and must be closed exactly once. Use Clone to hand a
// copy to someone else.
type Result struct {
	Image      gocv.Mat
	Detections []Detection
}

// Clone deep-copies the image and the detections.
func (r Result) Clone() Result {
	out := Result{Image: r.Image.Clone()}
	if r.Detections != nil {
		out.Detections = make([]Detection, len(r.Detections))
		for i, d := range r.Detections {
			if d.SpeedLimit != nil {
				v := *d.SpeedLimit
				d.SpeedLimit = &v
			}
			out.Detections[i] = d
		}
	}
	return out
}

// Close releases the image.
func (r *Result) Close() error {
	return r.Image.Close()
}

// SpeedLimits returns the speed limits found, in detection order.
func (r Result) SpeedLimits() []int {
	var out []int
	for _, d := range r.Detections {
		if d.SpeedLimit != nil {
			out = append(out, *d.SpeedLimit)
		}
	}
	return out
}
