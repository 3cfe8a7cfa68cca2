package gamma

import "math"

// RGB is a colour in 8-bit channel space, channels in [0, 255]
type RGB struct {
	R float64
	G float64
	B float64
}

// KelvinToRGB approximates the colour of a black body at the given
// temperature. This is Tanner Helland's empirical fit, valid roughly
// between 1000K and 40000K.
func KelvinToRGB(kelvin float64) RGB {
	t := kelvin / 100

	var r, g, b float64

	if t <= 66 {
		r = 255
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
	}

	if t <= 66 {
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}

	switch {
	case t <= 10:
		b = 0
	case t >= 66:
		b = 255
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}

	return RGB{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

// KelvinToGamma converts a temperature to gamma multipliers in [0, 1]
func KelvinToGamma(kelvin float64) Gamma {
	c := KelvinToRGB(kelvin)
	return Gamma{Red: c.R / 255, Green: c.G / 255, Blue: c.B / 255}
}

func clampChannel(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
