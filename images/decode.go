package images

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ImageFormat is an image file encoding.
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatBMP     ImageFormat = "bmp"
	FormatWebP    ImageFormat = "webp"
	FormatUnknown ImageFormat = ""
)

// FormatOf returns the format implied by the extension of path, in any case.
func FormatOf(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".bmp":
		return FormatBMP
	case ".webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// ReadFile decodes an image file into a BGR Mat.
//
// OpenCV decodes every format it was built with. WebP files are decoded in-process
// when OpenCV lacks WebP support.
//
// Arguments:
//   - path: The image file.
//
// Returns:
//   - gocv.Mat: A CV_8UC3 Mat the caller must close.
//   - error: An error if the file is missing or cannot be decoded.
func ReadFile(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	if FormatOf(path) != FormatWebP {
		return gocv.NewMat(), errors.Errorf("cannot decode %s", path)
	}
	return readWebP(path)
}

func readWebP(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "reading %s", path)
	}
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "decoding webp %s", path)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "converting %s", path)
	}
	return mat, nil
}
