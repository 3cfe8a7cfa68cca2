package gamma

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const directiveSyntax = "gamma configuration requires syntax:\n" +
	"    [hour] [minute]   [red-gamma] [green-gamma] [blue-gamma]\n" +
	"or  [hour] [minute]   [temperature]"

// ConfigFormatError reports a malformed anchor directive
type ConfigFormatError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *ConfigFormatError) Error() string {
	return fmt.Sprintf("%s:%d: %s (%q)\n%s", e.Source, e.Line, e.Reason, e.Text, directiveSyntax)
}

// ParseAnchors reads anchor directives, one per line, and builds a table.
//
// A directive is either "HOUR MINUTE RED GREEN BLUE" with gamma multipliers
// or "HOUR MINUTE KELVIN" with a colour temperature that is converted to
// multipliers at load time. Blank lines and lines starting with '#' are
// skipped.
func ParseAnchors(name string, r io.Reader) (*Table, error) {
	var anchors []Anchor

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		anchor, reason := parseDirective(fields)
		if reason != "" {
			return nil, &ConfigFormatError{
				Source: name,
				Line:   lineNo,
				Text:   strings.TrimSpace(line),
				Reason: reason,
			}
		}
		anchors = append(anchors, anchor)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	table, err := NewTable(anchors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return table, nil
}

// parseDirective returns a non-empty reason when the fields are invalid
func parseDirective(fields []string) (Anchor, string) {
	if len(fields) != 3 && len(fields) != 5 {
		return Anchor{}, fmt.Sprintf("expected 3 or 5 fields, got %d", len(fields))
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Anchor{}, fmt.Sprintf("field %d is not a number: %s", i+1, f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Anchor{}, fmt.Sprintf("field %d is not a finite number: %s", i+1, f)
		}
		values[i] = v
	}

	hour, minute := values[0], values[1]
	if hour < 0 || hour >= 24 {
		return Anchor{}, fmt.Sprintf("hour out of range [0, 24): %v", hour)
	}
	if minute < 0 || minute >= 60 {
		return Anchor{}, fmt.Sprintf("minute out of range [0, 60): %v", minute)
	}

	minuteOfDay := int(hour*60 + minute)
	if minuteOfDay >= MinutesPerDay {
		return Anchor{}, fmt.Sprintf("time %v:%v is past midnight", hour, minute)
	}

	if len(values) == 3 {
		kelvin := values[2]
		if kelvin <= 0 {
			return Anchor{}, fmt.Sprintf("temperature must be positive: %v", kelvin)
		}
		return Anchor{Minute: minuteOfDay, Gamma: KelvinToGamma(kelvin)}, ""
	}

	return Anchor{
		Minute: minuteOfDay,
		Gamma:  Gamma{Red: values[2], Green: values[3], Blue: values[4]},
	}, ""
}
