package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func getTestImage() image.Image {
	// A 100x60 red image.
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	return img
}

func TestFormatOf(t *testing.T) {
	tests := map[string]ImageFormat{
		"a.jpg":        FormatJPEG,
		"a.JPEG":       FormatJPEG,
		"dir/b.Png":    FormatPNG,
		"c.bmp":        FormatBMP,
		"d.WEBP":       FormatWebP,
		"e.gif":        FormatUnknown,
		"no-extension": FormatUnknown,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatOf(path), path)
	}
}

func TestReadFilePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, getTestImage()))
	path := filepath.Join(t.TempDir(), "red.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	mat, err := ReadFile(path)
	require.NoError(t, err)
	defer mat.Close()

	assert.True(t, IsColorRaster(mat))
	assert.Equal(t, image.Point{X: 100, Y: 60}, Size(mat))
	px := mat.GetVecbAt(10, 10)
	assert.Equal(t, []uint8{0, 0, 255}, []uint8{px[0], px[1], px[2]}, "BGR order")
}

func TestReadFileWebP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, getTestImage(), &webp.Options{Lossless: true}))
	path := filepath.Join(t.TempDir(), "red.webp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	mat, err := ReadFile(path)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, gocv.MatTypeCV8UC3, mat.Type())
	assert.Equal(t, image.Point{X: 100, Y: 60}, Size(mat))
	px := mat.GetVecbAt(30, 50)
	assert.Equal(t, uint8(255), px[2])
	assert.Equal(t, uint8(0), px[0])
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	mat, err := ReadFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	assert.True(t, mat.Empty())
	mat.Close()

	bogus := filepath.Join(dir, "bogus.webp")
	require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o644))
	mat, err = ReadFile(bogus)
	assert.Error(t, err)
	assert.True(t, mat.Empty())
	mat.Close()
}
