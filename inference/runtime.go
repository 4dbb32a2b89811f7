package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var runtimeMu sync.Mutex

// GetSharedLibPath returns the path to the onnxruntime shared library.
//
// Arguments:
//   - override: A configured path. Used as-is when set.
//
// Returns:
//   - string: The path to the shared library for the current platform.
//   - error: An error if the platform has no known default.
func GetSharedLibPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// InitRuntime loads the onnxruntime library once per process.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	path, err := GetSharedLibPath(libPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", path)
	}

	ort.SetSharedLibraryPath(path)
	return errors.Wrap(ort.InitializeEnvironment(), "initializing onnxruntime environment")
}
