package backend

import (
	"context"

	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

// scgSink hands the multipliers to the bundled scg helper, which sets the
// colour transformation through XRandR
type scgSink struct {
	run  Runner
	path string
}

func (s *scgSink) Name() string { return string(KindSCG) }

func (s *scgSink) Apply(ctx context.Context, g gamma.Gamma) error {
	return s.run(ctx, s.path, formatFloat(g.Red), formatFloat(g.Green), formatFloat(g.Blue))
}
