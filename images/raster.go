package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// IsColorRaster reports whether mat is a non-empty 8-bit, 3-channel raster.
func IsColorRaster(mat gocv.Mat) bool {
	if mat.Empty() || mat.Rows() <= 0 || mat.Cols() <= 0 {
		return false
	}
	return mat.Type() == gocv.MatTypeCV8UC3
}

// Size returns the width and height of mat.
func Size(mat gocv.Mat) image.Point {
	return image.Point{X: mat.Cols(), Y: mat.Rows()}
}

// ToCHW stretches a BGR frame to width x height and writes it into dst as
// planar RGB float32 values in [0, 1].
//
// Arguments:
//   - mat: The source frame (8-bit, 3-channel, BGR order as decoded by OpenCV).
//   - width: The model input width.
//   - height: The model input height.
//   - dst: Destination buffer, at least 3*width*height long.
//
// Returns:
//   - error: An error if the frame is not a color raster or dst is too small.
func ToCHW(mat gocv.Mat, width, height int, dst []float32) error {
	if !IsColorRaster(mat) {
		return errors.New("input is not an 8-bit 3-channel raster")
	}
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination only holds %d floats, needs %d", len(dst), channelSize*3)
	}

	// ToImage converts BGR to RGBA for 3-channel Mats.
	img, err := mat.ToImage()
	if err != nil {
		return errors.Wrap(err, "converting frame to image")
	}
	img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)

	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	bounds := img.Bounds()
	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+height; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
