package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-speedsign/detector"
)

// Summarize renders the one-line status shown after a detection.
func Summarize(detections []detector.Detection, cached bool) string {
	suffix := ""
	if cached {
		suffix = " (cached)"
	}
	if len(detections) == 0 {
		return "No signs detected" + suffix
	}

	var (
		speeds []string
		total  float32
	)
	for _, d := range detections {
		if d.SpeedLimit == nil {
			continue
		}
		speeds = append(speeds, strconv.Itoa(*d.SpeedLimit))
		total += d.Confidence
	}
	if len(speeds) == 0 {
		return "Other signs detected" + suffix
	}
	return fmt.Sprintf("Detected: %s km/h (conf: %.2f)%s",
		strings.Join(speeds, ", "), total/float32(len(speeds)), suffix)
}
