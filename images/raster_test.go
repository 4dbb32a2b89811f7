package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestIsColorRaster(t *testing.T) {
	color3 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer color3.Close()
	gray := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC1)
	defer gray.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	assert.True(t, IsColorRaster(color3))
	assert.False(t, IsColorRaster(gray))
	assert.False(t, IsColorRaster(empty))
	assert.Equal(t, image.Point{X: 64, Y: 48}, Size(color3))
}

func TestToCHW(t *testing.T) {
	// Pure blue in BGR order.
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 20, 40, gocv.MatTypeCV8UC3)
	defer frame.Close()

	const w, h = 8, 8
	dst := make([]float32, 3*w*h)
	require.NoError(t, ToCHW(frame, w, h, dst))

	for i := 0; i < w*h; i++ {
		assert.InDelta(t, 0.0, dst[i], 0.01, "red plane")
		assert.InDelta(t, 0.0, dst[w*h+i], 0.01, "green plane")
		assert.InDelta(t, 1.0, dst[2*w*h+i], 0.01, "blue plane")
	}
}

func TestToCHW_Errors(t *testing.T) {
	frame := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer frame.Close()
	assert.Error(t, ToCHW(frame, 8, 8, make([]float32, 10)))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, ToCHW(empty, 8, 8, make([]float32, 3*64)))
}

func TestComputeMatChecksum(t *testing.T) {
	a := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer a.Close()
	b := a.Clone()
	defer b.Close()

	assert.Equal(t, ComputeMatChecksum(a), ComputeMatChecksum(b))

	gocv.Rectangle(&b, image.Rect(2, 2, 10, 10), color.RGBA{255, 0, 0, 0}, -1)
	assert.NotEqual(t, ComputeMatChecksum(a), ComputeMatChecksum(b))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Equal(t, "empty", ComputeMatChecksum(empty))
}
