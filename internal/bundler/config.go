package bundler

import "errors"

var (
	// ErrUnknownTarget is returned for a syntax target esbuild has no constant for.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrUnknownFormat is returned for a module format other than esm or cjs.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrInvalidOption is returned when a passthrough setting has the wrong shape.
	ErrInvalidOption = errors.New("invalid option")

	// ErrUnsafeClean is returned when a clean would remove the working directory or escape it.
	ErrUnsafeClean = errors.New("refusing to clean directory")
)

type Config struct {
	// Maximum number of variants built at once, zero or less means unlimited
	Concurrency int
	// Emits type declarations for descriptors that ask for them, nil skips them
	Declarations DeclarationEmitter
}

// DefaultConfig builds every variant at once and emits declarations with tsc.
func DefaultConfig() Config {
	return Config{
		Concurrency:  0,
		Declarations: TSC{Command: "tsc"},
	}
}
