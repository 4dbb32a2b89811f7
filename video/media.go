package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultCodec is the fourcc used for output files.
const DefaultCodec = "mp4v"

var (
	// ErrOpenInput is returned when the source cannot be opened.
	ErrOpenInput = errors.New("cannot open video")
	// ErrOpenOutput is returned when the destination cannot be created.
	ErrOpenOutput = errors.New("cannot create output video")
)

// Props describe a stream. FrameCount is the container's estimate and may be 0.
type Props struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// Source yields decoded BGR frames in order.
type Source interface {
	// Read decodes the next frame into dst. It returns false at end of stream.
	Read(dst *gocv.Mat) bool
	Props() Props
	Close() error
}

// Writer encodes frames in the order written.
type Writer interface {
	Write(frame gocv.Mat) error
	Close() error
}

// Opener opens media by path.
type Opener interface {
	OpenSource(path string) (Source, error)
	OpenWriter(path string, props Props) (Writer, error)
}

// FileOpener reads and writes video files through OpenCV.
type FileOpener struct {
	// Codec is the output fourcc. Empty means DefaultCodec.
	Codec string
}

// OpenSource opens a video file for decoding.
func (o FileOpener) OpenSource(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if capture != nil {
			capture.Close()
		}
		return nil, errors.Wrapf(ErrOpenInput, "%s: %v", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Wrap(ErrOpenInput, path)
	}
	return &captureSource{capture: capture}, nil
}

// OpenWriter creates a video file with the given size and frame rate.
func (o FileOpener) OpenWriter(path string, props Props) (Writer, error) {
	codec := o.Codec
	if codec == "" {
		codec = DefaultCodec
	}
	writer, err := gocv.VideoWriterFile(path, codec, props.FPS, props.Width, props.Height, true)
	if err != nil {
		if writer != nil {
			writer.Close()
		}
		return nil, errors.Wrapf(ErrOpenOutput, "%s: %v", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, errors.Wrap(ErrOpenOutput, path)
	}
	return &fileWriter{writer: writer}, nil
}

type captureSource struct {
	capture *gocv.VideoCapture
}

func (s *captureSource) Read(dst *gocv.Mat) bool {
	return s.capture.Read(dst) && !dst.Empty()
}

func (s *captureSource) Props() Props {
	return Props{
		Width:      int(s.capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(s.capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        s.capture.Get(gocv.VideoCaptureFPS),
		FrameCount: int(s.capture.Get(gocv.VideoCaptureFrameCount)),
	}
}

func (s *captureSource) Close() error {
	return s.capture.Close()
}

type fileWriter struct {
	writer *gocv.VideoWriter
}

func (w *fileWriter) Write(frame gocv.Mat) error {
	return w.writer.Write(frame)
}

func (w *fileWriter) Close() error {
	return w.writer.Close()
}
