// Package inference - Inference sessions.
package inference

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

// Session represents a model session from the onnxruntime with its bound
// input and output tensors.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]

	mu        sync.Mutex
	runs      int64
	totalTime time.Duration
}

// Run executes the model once, reading Input and filling Output.
func (s *Session) Run() error {
	if s.Session == nil {
		return errors.New("session is closed")
	}
	start := time.Now()
	err := s.Session.Run()

	s.mu.Lock()
	s.runs++
	s.totalTime += time.Since(start)
	s.mu.Unlock()

	return errors.Wrap(err, "running session")
}

// Metrics returns the number of runs and their mean duration.
func (s *Session) Metrics() (runs int64, mean time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == 0 {
		return 0, 0
	}
	return s.runs, s.totalTime / time.Duration(s.runs)
}

// Close releases the resources associated with the Session.
//
// Returns:
//   - error: The combined destroy errors, if any.
func (s *Session) Close() error {
	var err error
	if s.Input != nil {
		err = multierr.Append(err, s.Input.Destroy())
		s.Input = nil
	}
	if s.Output != nil {
		err = multierr.Append(err, s.Output.Destroy())
		s.Output = nil
	}
	if s.Session != nil {
		err = multierr.Append(err, s.Session.Destroy())
		s.Session = nil
	}
	return err
}
