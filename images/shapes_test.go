package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical rectangles", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=17500
		{"Half overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}, 0.142857},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 0.25},
		{"Zero area", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, 0.001)

			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.InDelta(t, result, reverse, 0.0001, "IoU should be symmetric")
		})
	}
}

func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Partial overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}},
		{"Full overlap", Rect{50, 50, 150, 150}, Rect{50, 50, 150, 150}},
		{"Large boxes", Rect{0, 0, 1920, 1080}, Rect{960, 540, 1920, 1080}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ir1, ir2 := tc.r1.Rectangle(), tc.r2.Rectangle()
			inter := ir1.Intersect(ir2)
			interArea := inter.Dx() * inter.Dy()
			want := float32(interArea) / float32(ir1.Dx()*ir1.Dy()+ir2.Dx()*ir2.Dy()-interArea)

			got := CalculateIoU(tc.r1, tc.r2)
			assert.LessOrEqual(t, math.Abs(float64(got-want)), 0.0001)
		})
	}
}

func TestRect_ClampTo(t *testing.T) {
	tests := []struct {
		name   string
		in     Rect
		want   Rect
		wantOK bool
	}{
		{"inside", Rect{10, 10, 50, 50}, Rect{10, 10, 50, 50}, true},
		{"overhangs right and bottom", Rect{600, 400, 700, 500}, Rect{600, 400, 640, 480}, true},
		{"negative origin", Rect{-20, -5, 30, 40}, Rect{0, 0, 30, 40}, true},
		{"fully outside", Rect{700, 10, 800, 50}, Rect{640, 10, 640, 50}, false},
		{"inverted", Rect{50, 50, 10, 10}, Rect{50, 50, 10, 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.ClampTo(640, 480)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRect_RoundTrip(t *testing.T) {
	r := image.Rect(3, 4, 30, 40)
	assert.Equal(t, r, FromRectangle(r).Rectangle())
	assert.Equal(t, 27*36, FromRectangle(r).Area())
}
