package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/nvr-ai/go-speedsign/app"
	"github.com/nvr-ai/go-speedsign/config"
	"github.com/nvr-ai/go-speedsign/video"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func main() {
	os.Exit(run())
}

func run() int {
	parser := argparse.NewParser("speedsign", "Detect and annotate speed-limit signs")
	configPath := parser.String("c", "config", &argparse.Options{Help: "Settings file", Default: config.DefaultPath})
	modelPath := parser.String("m", "model", &argparse.Options{Help: "Path to ONNX model file, overrides the settings file"})
	conf := parser.Float("", "conf", &argparse.Options{Help: "Confidence threshold in [0, 1]", Default: -1.0})
	iou := parser.Float("", "iou", &argparse.Options{Help: "IoU threshold in [0, 1]", Default: -1.0})
	logsOut := parser.String("", "logs", &argparse.Options{Help: "Export the session log to this file on exit"})

	imageCmd := parser.NewCommand("image", "Annotate an image file or every image in a folder")
	imageInput := imageCmd.String("i", "input", &argparse.Options{Help: "Image file or folder", Required: true})
	imageOutput := imageCmd.String("o", "output", &argparse.Options{Help: "Folder for annotated images", Default: "annotated"})

	videoCmd := parser.NewCommand("video", "Annotate a video file")
	videoInput := videoCmd.String("i", "input", &argparse.Options{Help: "Input video file", Required: true})
	videoOutput := videoCmd.String("o", "output", &argparse.Options{Help: "Output video file", Required: true})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		return 1
	}

	boot := bootLogger(zap.NewDevelopment)
	cfg := config.Load(*configPath, boot)
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	logger, err := cfg.Logger()
	if err != nil {
		boot.Warn("falling back to development logger", zap.Error(err))
		logger = boot
	}
	defer logger.Sync()

	a, err := app.Open(cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	if *conf >= 0 || *iou >= 0 {
		p := a.Params()
		if *conf >= 0 {
			p.Confidence = float32(*conf)
		}
		if *iou >= 0 {
			p.IoU = float32(*iou)
		}
		if err := a.UpdateParameters(p.Confidence, p.IoU); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok := true
	switch {
	case imageCmd.Happened():
		ok = runImages(a, *imageInput, *imageOutput, logger)
	case videoCmd.Happened():
		ok = runVideo(ctx, a, *videoInput, *videoOutput)
	}

	if *logsOut != "" {
		if err := a.LogBook().Export(*logsOut); err != nil {
			logger.Warn("log export failed", zap.Error(err))
		}
	}
	if !ok {
		return 1
	}
	return 0
}

// bootLogger logs config fallbacks before the configured logger exists.
func bootLogger(build func(...zap.Option) (*zap.Logger, error)) *zap.Logger {
	logger, err := build()
	if err != nil || logger == nil {
		return zap.NewNop()
	}
	return logger
}

func runImages(a *app.App, input, outDir string, logger *zap.Logger) bool {
	var paths []string
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		set, err := a.LoadImageSet(input)
		if err != nil {
			logger.Error("cannot list images", zap.String("dir", input), zap.Error(err))
			return false
		}
		for _, f := range set.Files {
			paths = append(paths, f.Path)
		}
	} else {
		paths = []string{input}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Error("cannot create output folder", zap.String("dir", outDir), zap.Error(err))
		return false
	}

	ok := true
	for _, path := range paths {
		res, cached, err := a.DetectFile(path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			ok = false
			continue
		}
		dst := filepath.Join(outDir, filepath.Base(path))
		if !gocv.IMWrite(dst, res.Image) {
			logger.Error("cannot write image", zap.String("path", dst))
			ok = false
		}
		fmt.Printf("%s: %s\n", path, app.Summarize(res.Detections, cached))
		res.Close()
	}
	return ok
}

func runVideo(ctx context.Context, a *app.App, input, output string) bool {
	return a.ProcessVideo(ctx, input, output,
		func(percent int) { fmt.Printf("\rprogress %3d%%", percent) },
		func(level video.Level, message string) { fmt.Printf("\n[%s] %s\n", level, message) })
}
