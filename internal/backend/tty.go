package backend

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

// DefaultPalette is the console palette tinted by the tty backend
var DefaultPalette = [16]uint32{
	0x282a2e, 0xa54242, 0x8c9440, 0xde935f,
	0x5f819d, 0x85678f, 0x5e8d87, 0x707880,
	0x373b41, 0xcc6666, 0xb5bd68, 0xf0c674,
	0x81a2be, 0xb294bb, 0x8abeb7, 0xc5c8c6,
}

// ParsePaletteColor parses a six digit hex colour, with or without '#'
func ParsePaletteColor(s string) (uint32, error) {
	if len(s) == 7 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid palette colour %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid palette colour %q: %w", s, err)
	}
	return uint32(v), nil
}

// ttySink retints the Linux console palette through tty.sh
type ttySink struct {
	run     Runner
	path    string
	palette [16]uint32
}

func (s *ttySink) Name() string { return string(KindTTY) }

func (s *ttySink) Apply(ctx context.Context, g gamma.Gamma) error {
	return s.run(ctx, s.path, TintPalette(s.palette, g)...)
}

// TintPalette scales each palette entry by the multipliers and returns the
// console escape arguments, one "Irrggbb" string per index
func TintPalette(palette [16]uint32, g gamma.Gamma) []string {
	args := make([]string, len(palette))
	for i, c := range palette {
		r := scaleChannel(c>>16&0xff, g.Red)
		gr := scaleChannel(c>>8&0xff, g.Green)
		b := scaleChannel(c&0xff, g.Blue)
		args[i] = fmt.Sprintf("%X%02x%02x%02x", i, r, gr, b)
	}
	return args
}

func scaleChannel(c uint32, mult float64) int {
	v := float64(c) * mult
	if v > 255 {
		return 255
	}
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}
