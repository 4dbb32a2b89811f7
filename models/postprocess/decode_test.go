package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-speedsign/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// columnMajor lays out candidates the way a YOLOv8 head does: one row per feature.
func columnMajor(candidates [][]float32) []float32 {
	features := len(candidates[0])
	out := make([]float32, features*len(candidates))
	for a, c := range candidates {
		for f, v := range c {
			out[f*len(candidates)+a] = v
		}
	}
	return out
}

func TestDecodeYOLO(t *testing.T) {
	candidates := [][]float32{
		// cx, cy, w, h, class0, class1
		{50, 50, 20, 40, 0.10, 0.90},
		{10, 10, 4, 4, 0.20, 0.10},
		{100, 60, 10, 10, 0.70, 0.30},
	}
	cfg := DecodeConfig{
		Layout:              YOLOLayout{NumClasses: 2, NumAnchors: 3},
		ScaleX:              2,
		ScaleY:              0.5,
		ConfidenceThreshold: 0.5,
	}

	got, err := DecodeYOLO(columnMajor(candidates), cfg)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Class)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
	assert.Equal(t, images.Rect{X1: 80, Y1: 15, X2: 120, Y2: 35}, got[0].Box)

	assert.Equal(t, 0, got[1].Class)
	assert.Equal(t, images.Rect{X1: 190, Y1: 28, X2: 210, Y2: 33}, got[1].Box)
}

func TestDecodeYOLORowMajor(t *testing.T) {
	out := []float32{
		50, 50, 20, 20, 0.95,
		0, 0, 1, 1, 0.01,
	}
	cfg := DecodeConfig{
		Layout:              YOLOLayout{NumClasses: 1, NumAnchors: 2, RowMajor: true},
		ScaleX:              1,
		ScaleY:              1,
		ConfidenceThreshold: 0.25,
	}

	got, err := DecodeYOLO(out, cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, images.Rect{X1: 40, Y1: 40, X2: 60, Y2: 60}, got[0].Box)
}

func TestDecodeYOLOClampsScore(t *testing.T) {
	out := []float32{10, 10, 2, 2, 1.5}
	got, err := DecodeYOLO(out, DecodeConfig{
		Layout: YOLOLayout{NumClasses: 1, NumAnchors: 1, RowMajor: true},
		ScaleX: 1, ScaleY: 1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, float32(1), got[0].Score)
}

func TestDecodeYOLOShapeMismatch(t *testing.T) {
	_, err := DecodeYOLO(make([]float32, 10), DecodeConfig{Layout: YOLOLayout{NumClasses: 2, NumAnchors: 3}})
	assert.Error(t, err)

	_, err = DecodeYOLO(nil, DecodeConfig{})
	assert.Error(t, err)
}
