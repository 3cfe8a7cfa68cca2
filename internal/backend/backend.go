package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

// Kind selects one of the fixed output backends
type Kind string

const (
	KindXGamma Kind = "xgamma"
	KindSCG    Kind = "scg"
	KindTTY    Kind = "tty"
)

// Kinds lists every supported backend
var Kinds = []Kind{KindXGamma, KindSCG, KindTTY}

// ErrUnknownBackend is returned by ParseKind for names outside Kinds
var ErrUnknownBackend = errors.New("unknown backend")

// ParseKind validates a backend name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q, choose from: %v", ErrUnknownBackend, name, Kinds)
}

// NeedsDisplay reports whether the backend talks to an X server
func (k Kind) NeedsDisplay() bool {
	return k != KindTTY
}

// Sink applies gamma multipliers to the display
type Sink interface {
	Name() string
	Apply(ctx context.Context, g gamma.Gamma) error
}

// Runner executes an external helper command
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command and waits for it to exit successfully
func ExecRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w (output: %q)", name, err, out)
	}
	return nil
}

// Options configure the backends
type Options struct {
	// HelperDir holds the scg binary and tty.sh script
	HelperDir string

	// Palette is the 16 colour console palette used by the tty backend
	Palette [16]uint32

	Runner Runner
}

// New returns the sink for kind
func New(kind Kind, opts Options) (Sink, error) {
	run := opts.Runner
	if run == nil {
		run = ExecRunner
	}

	switch kind {
	case KindXGamma:
		return &xgammaSink{run: run}, nil
	case KindSCG:
		return &scgSink{run: run, path: filepath.Join(opts.HelperDir, "scg")}, nil
	case KindTTY:
		return &ttySink{run: run, path: filepath.Join(opts.HelperDir, "tty.sh"), palette: opts.Palette}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, kind)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
