// Package test - Deterministic frames and a scripted inference port for tests.
package test

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-speedsign/models"
	"github.com/nvr-ai/go-speedsign/models/postprocess"
	"gocv.io/x/gocv"
)

// MockFrameGenerator creates deterministic BGR test frames.
//
// @example
// gen := NewMockFrameGenerator(640, 480)
// frame := gen.GenerateStaticFrame()
// defer frame.Close()
type MockFrameGenerator struct {
	width  int
	height int
}

// NewMockFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
//
// Returns:
// - A configured MockFrameGenerator instance.
func NewMockFrameGenerator(width, height int) *MockFrameGenerator {
	return &MockFrameGenerator{width: width, height: height}
}

// GenerateStaticFrame creates a mid-gray 8-bit 3-channel frame.
func (g *MockFrameGenerator) GenerateStaticFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), g.height, g.width, gocv.MatTypeCV8UC3)
}

// GenerateSignFrame creates a frame with a filled white square standing in for
// a sign at (x, y).
//
// Arguments:
// - x: X coordinate of the square.
// - y: Y coordinate of the square.
// - size: Side of the square in pixels.
//
// Returns:
// - A BGR Mat the caller must close.
func (g *MockFrameGenerator) GenerateSignFrame(x, y, size int) gocv.Mat {
	frame := g.GenerateStaticFrame()
	gocv.Rectangle(&frame, image.Rect(x, y, x+size, y+size), color.RGBA{255, 255, 255, 0}, -1)
	return frame
}

// MockPort is a scripted inference port.
//
// Every Infer call returns Results (or Err) and counts itself. When Gate is
// set, Infer blocks until it is closed or receives, which lets tests hold a
// computation in flight.
type MockPort struct {
	Results []postprocess.Result
	Err     error
	// Panic, when non-nil, is raised by the next Infer call and then cleared.
	Panic any
	Names   *models.OutputClassSet
	Gate    chan struct{}
	// Entered receives once per call, before Gate is waited on, when non-nil.
	Entered chan struct{}

	mu     sync.Mutex
	calls  atomic.Int64
	closed atomic.Bool
	// LastConfidence and LastIoU are the thresholds of the latest call.
	LastConfidence float32
	LastIoU        float32
}

// Infer implements inference.Port.
func (m *MockPort) Infer(_ gocv.Mat, confidence, iou float32) ([]postprocess.Result, error) {
	m.calls.Add(1)
	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.Gate != nil {
		<-m.Gate
	}

	m.mu.Lock()
	m.LastConfidence = confidence
	m.LastIoU = iou
	m.mu.Unlock()

	if v := m.takePanic(); v != nil {
		panic(v)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]postprocess.Result, len(m.Results))
	copy(out, m.Results)
	return out, nil
}

func (m *MockPort) takePanic() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.Panic
	m.Panic = nil
	return v
}

// Classes implements inference.Port.
func (m *MockPort) Classes() *models.OutputClassSet {
	if m.Names == nil {
		return models.SpeedSignClasses
	}
	return m.Names
}

// Close implements inference.Port.
func (m *MockPort) Close() error {
	m.closed.Store(true)
	return nil
}

// Calls returns how many times Infer ran.
func (m *MockPort) Calls() int {
	return int(m.calls.Load())
}

// Closed reports whether Close was called.
func (m *MockPort) Closed() bool {
	return m.closed.Load()
}

// Thresholds returns the thresholds of the latest call.
func (m *MockPort) Thresholds() (confidence, iou float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastConfidence, m.LastIoU
}
