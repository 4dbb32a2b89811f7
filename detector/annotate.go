package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	boxThickness  = 3
	fontScale     = 0.8
	textThickness = 2
	labelPadding  = 10
	textBaseline  = 5
)

var textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Annotate draws each detection onto img: the box in its tier colour, a filled
// label background of the same colour and the white label text.
func Annotate(img *gocv.Mat, detections []Detection) {
	for _, d := range detections {
		c := TierOf(d.Confidence).Color()
		gocv.Rectangle(img, d.Box, c, boxThickness)

		label := d.Label()
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, fontScale, textThickness)
		background := image.Rect(
			d.Box.Min.X, d.Box.Min.Y-size.Y-labelPadding,
			d.Box.Min.X+size.X, d.Box.Min.Y,
		)
		gocv.Rectangle(img, background, c, -1)
		gocv.PutText(img, label, image.Pt(d.Box.Min.X, d.Box.Min.Y-textBaseline),
			gocv.FontHersheySimplex, fontScale, textColor, textThickness)
	}
}
