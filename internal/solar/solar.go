// Package solar derives an anchor table from the local sunrise and sunset.
package solar

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/sixdouglas/suncalc"

	"github.com/saaga0h/jeeves-gamma/internal/gamma"
)

// Options control the generated schedule
type Options struct {
	Latitude  float64
	Longitude float64

	DayKelvin   float64
	NightKelvin float64

	// Twilight is the length of the ramp centred on sunrise and sunset
	Twilight time.Duration
}

// Point is one temperature anchor
type Point struct {
	Minute int
	Kelvin float64
}

// Generate returns temperature anchors for the day containing date, in
// date's location. On days without a sunrise or sunset the table holds a
// single anchor chosen from the sun altitude at local noon.
func Generate(date time.Time, opts Options) []Point {
	loc := date.Location()
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)

	times := suncalc.GetTimes(noon, opts.Latitude, opts.Longitude)
	sunrise := times[suncalc.Sunrise].Value.In(loc)
	sunset := times[suncalc.Sunset].Value.In(loc)

	if !validSunTimes(noon, sunrise, sunset) {
		kelvin := opts.NightKelvin
		if suncalc.GetPosition(noon, opts.Latitude, opts.Longitude).Altitude > 0 {
			kelvin = opts.DayKelvin
		}
		return []Point{{Minute: 12 * 60, Kelvin: kelvin}}
	}

	half := opts.Twilight / 2
	points := []Point{
		{Minute: minuteOfDay(sunrise.Add(-half)), Kelvin: opts.NightKelvin},
		{Minute: minuteOfDay(sunrise.Add(half)), Kelvin: opts.DayKelvin},
		{Minute: minuteOfDay(sunset.Add(-half)), Kelvin: opts.DayKelvin},
		{Minute: minuteOfDay(sunset.Add(half)), Kelvin: opts.NightKelvin},
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Minute < points[j].Minute })
	return points
}

// validSunTimes rejects the undefined results suncalc returns for polar
// day and polar night
func validSunTimes(noon, sunrise, sunset time.Time) bool {
	if sunrise.IsZero() || sunset.IsZero() || !sunrise.Before(sunset) {
		return false
	}
	if sunset.Sub(sunrise) >= 24*time.Hour {
		return false
	}
	return math.Abs(sunrise.Sub(noon).Hours()) < 24 && math.Abs(sunset.Sub(noon).Hours()) < 24
}

func minuteOfDay(t time.Time) int {
	return int(math.Mod(math.Floor(gamma.Instant(t)), gamma.MinutesPerDay))
}

// Write renders points in the anchor file format
func Write(w io.Writer, date time.Time, opts Options, points []Point) error {
	header := fmt.Sprintf("# Generated for %s at %.4f, %.4f\n# [hour] [minute]   [temperature]\n",
		date.Format("2006-01-02 MST"), opts.Latitude, opts.Longitude)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("failed to write anchor header: %w", err)
	}

	for _, p := range points {
		if _, err := fmt.Fprintf(w, "%02d %02d   %.0f\n", p.Minute/60, p.Minute%60, p.Kelvin); err != nil {
			return fmt.Errorf("failed to write anchor: %w", err)
		}
	}
	return nil
}
