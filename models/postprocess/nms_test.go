package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-speedsign/images"
	"github.com/stretchr/testify/assert"
)

func TestApplyGreedyNMS(t *testing.T) {
	a := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 0}
	b := Result{Box: images.Rect{X1: 5, Y1: 5, X2: 105, Y2: 105}, Score: 0.7, Class: 0}
	c := Result{Box: images.Rect{X1: 5, Y1: 5, X2: 105, Y2: 105}, Score: 0.8, Class: 1}
	d := Result{Box: images.Rect{X1: 300, Y1: 300, X2: 350, Y2: 350}, Score: 0.6, Class: 0}

	tests := []struct {
		name   string
		input  []Result
		config NMSConfig
		want   []Result
	}{
		{name: "empty", input: nil, config: NMSConfig{IoUThreshold: 0.45}, want: nil},
		{
			name:   "suppresses overlap within class",
			input:  []Result{b, a, d},
			config: NMSConfig{IoUThreshold: 0.45, ClassAware: true},
			want:   []Result{a, d},
		},
		{
			name:   "class aware keeps other class",
			input:  []Result{a, b, c},
			config: NMSConfig{IoUThreshold: 0.45, ClassAware: true},
			want:   []Result{a, c},
		},
		{
			name:   "class agnostic suppresses other class",
			input:  []Result{a, b, c},
			config: NMSConfig{IoUThreshold: 0.45},
			want:   []Result{a},
		},
		{
			name:   "high threshold keeps all",
			input:  []Result{a, b},
			config: NMSConfig{IoUThreshold: 0.95, ClassAware: true},
			want:   []Result{a, b},
		},
		{
			name:   "max results",
			input:  []Result{a, d, c},
			config: NMSConfig{IoUThreshold: 0.95, MaxResults: 2},
			want:   []Result{a, c},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyGreedyNMS(tt.input, tt.config))
		})
	}
}

func TestApplyGreedyNMSDoesNotReorderInput(t *testing.T) {
	in := []Result{
		{Box: images.Rect{X2: 10, Y2: 10}, Score: 0.1},
		{Box: images.Rect{X1: 50, Y1: 50, X2: 60, Y2: 60}, Score: 0.9},
	}
	_ = ApplyGreedyNMS(in, NMSConfig{IoUThreshold: 0.5})
	assert.Equal(t, float32(0.1), in[0].Score)
}
