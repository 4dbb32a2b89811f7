package detector

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

const (
	// DefaultConfidence is the minimum score a detection needs to be kept.
	DefaultConfidence float32 = 0.5
	// DefaultIoU is the overlap above which NMS suppresses a box.
	DefaultIoU float32 = 0.45
)

// ErrInvalidParams is returned when a threshold is outside [0, 1].
var ErrInvalidParams = errors.New("invalid detection parameters")

// Params are the detection thresholds.
type Params struct {
	Confidence float32 `yaml:"confidence_threshold"`
	IoU        float32 `yaml:"iou_threshold"`
}

// DefaultParams returns 0.5 confidence and 0.45 IoU.
func DefaultParams() Params {
	return Params{Confidence: DefaultConfidence, IoU: DefaultIoU}
}

// Validate reports whether both thresholds are in [0, 1].
func (p Params) Validate() error {
	if !inUnit(p.Confidence) {
		return errors.Wrapf(ErrInvalidParams, "confidence %v outside [0, 1]", p.Confidence)
	}
	if !inUnit(p.IoU) {
		return errors.Wrapf(ErrInvalidParams, "iou %v outside [0, 1]", p.IoU)
	}
	return nil
}

func inUnit(v float32) bool {
	return !math.IsNaN(float64(v)) && v >= 0 && v <= 1
}

// Settings holds the current Params for every reader in the process.
//
// Readers call Get for each unit of work, so a change is seen from the next
// image or frame on. Subscribers run after a change, outside the lock, on the
// goroutine that called Set.
type Settings struct {
	mu     sync.RWMutex
	params Params
	subs   []func(Params)
}

// NewSettings returns Settings starting at p. Invalid values start at defaults.
func NewSettings(p Params) *Settings {
	if p.Validate() != nil {
		p = DefaultParams()
	}
	return &Settings{params: p}
}

// Get returns the current Params.
func (s *Settings) Get() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Set replaces the current Params.
//
// Returns:
//   - bool: True when the value changed.
//   - error: ErrInvalidParams when p is rejected. The current value is kept.
func (s *Settings) Set(p Params) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.params == p {
		s.mu.Unlock()
		return false, nil
	}
	s.params = p
	subs := append([]func(Params){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	return true, nil
}

// Reset restores the default Params.
func (s *Settings) Reset() bool {
	changed, _ := s.Set(DefaultParams())
	return changed
}

// Subscribe registers fn to run after every change.
func (s *Settings) Subscribe(fn func(Params)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
