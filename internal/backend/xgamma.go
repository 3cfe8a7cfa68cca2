package backend

import (
	"context"

	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

// xgammaSink sets the X server gamma ramp through xorg-xgamma
type xgammaSink struct {
	run Runner
}

func (s *xgammaSink) Name() string { return string(KindXGamma) }

func (s *xgammaSink) Apply(ctx context.Context, g gamma.Gamma) error {
	return s.run(ctx, "xgamma", "-quiet",
		"-rgamma", formatFloat(g.Red),
		"-ggamma", formatFloat(g.Green),
		"-bgamma", formatFloat(g.Blue))
}
