package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Options configures an ONNX Runtime session.
type Options struct {
	// Provider is the preferred execution provider. CPU is always the fallback.
	Provider Provider `yaml:"provider"`
	// IntraOpNumThreads parallelizes work within graph nodes. 0 uses the runtime default.
	IntraOpNumThreads int `yaml:"intra_op_threads"`
	// InterOpNumThreads parallelizes independent graph nodes. 0 uses the runtime default.
	InterOpNumThreads int `yaml:"inter_op_threads"`
	// ProviderOptions are passed to the provider as-is (OpenVINO, CUDA).
	ProviderOptions map[string]string `yaml:"provider_options"`
}

// DefaultOptions returns CPU execution with threads sized to the host.
func DefaultOptions() Options {
	return Options{
		Provider:          CPUExecutionProvider,
		IntraOpNumThreads: max(1, runtime.NumCPU()/2),
		InterOpNumThreads: max(1, runtime.NumCPU()/4),
	}
}

// SessionOptions builds ort session options from opts.
//
// A provider that fails to attach is logged and skipped, so the session still
// runs on CPU.
//
// Arguments:
//   - opts: The session configuration.
//   - logger: Receives provider fallback warnings.
//
// Returns:
//   - *ort.SessionOptions: Options the caller must Destroy.
//   - error: An error if the options could not be created.
func SessionOptions(opts Options, logger *zap.Logger) (*ort.SessionOptions, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}

	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting graph optimization level")
	}
	if opts.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.IntraOpNumThreads); err != nil {
			options.Destroy()
			return nil, errors.Wrap(err, "setting intra-op threads")
		}
	}
	if opts.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(opts.InterOpNumThreads); err != nil {
			options.Destroy()
			return nil, errors.Wrap(err, "setting inter-op threads")
		}
	}

	if err := appendProvider(options, opts); err != nil {
		logger.Sugar().Warnw("execution provider unavailable, using cpu",
			"provider", opts.Provider, "error", err)
	}
	return options, nil
}

func appendProvider(options *ort.SessionOptions, opts Options) error {
	switch opts.Provider {
	case "", CPUExecutionProvider:
		return nil
	case CoreMLExecutionProvider:
		return options.AppendExecutionProviderCoreML(0)
	case OpenVINOExecutionProvider:
		provider := map[string]string{"device_type": "CPU", "precision": "FP32"}
		for k, v := range opts.ProviderOptions {
			provider[k] = v
		}
		return options.AppendExecutionProviderOpenVINO(provider)
	case CUDAExecutionProvider:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cuda.Destroy()
		if len(opts.ProviderOptions) > 0 {
			if err := cuda.Update(opts.ProviderOptions); err != nil {
				return err
			}
		}
		return options.AppendExecutionProviderCUDA(cuda)
	default:
		return errors.Errorf("unsupported execution provider: %q", opts.Provider)
	}
}
