// Package specparse converts dimension specification strings from
// inspection drawings into numeric specification limits.
//
// Two drawing conventions are supported: asymmetric tolerances such as
// "27.80+0.10-0.00" and symmetric tolerances such as "Φ6.00±0.10" or
// "6.00+/-0.10". Diameter and unit markers are ignored.
package specparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"iqccli/internal/spc"
)

var (
	// asymmetricPattern matches "nominal+upper-lower", e.g. "27.80+0.10-0.00".
	asymmetricPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\+(\d+(?:\.\d+)?)-(\d+(?:\.\d+)?)$`)

	// symmetricPattern matches "nominal±tol" with either the ± glyph or
	// the "+/-" ASCII form, e.g. "6.00±0.10".
	symmetricPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:±|\+/-)(\d+(?:\.\d+)?)$`)

	// markerPattern strips diameter/unit decoration before matching.
	markerPattern = regexp.MustCompile(`(?i)^[ΦφØø⌀]|mm$|cm$`)
)

// ParseError reports a specification string that does not match any known
// drawing convention, or one whose tolerances collapse the band.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse specification %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return spc.ErrInvalidSpecification }

// Parse converts a specification string into limits with the nominal set.
//
//	Parse("27.80+0.10-0.00") // USL 27.90, LSL 27.80, Target 27.80
//	Parse("Φ6.00±0.10")      // USL 6.10, LSL 5.90, Target 6.00
func Parse(input string) (spc.Limits, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	cleaned = markerPattern.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return spc.Limits{}, &ParseError{Input: input, Reason: "empty specification"}
	}

	if m := symmetricPattern.FindStringSubmatch(cleaned); m != nil {
		nominal, tol, err := parsePair(m[1], m[2])
		if err != nil {
			return spc.Limits{}, &ParseError{Input: input, Reason: err.Error()}
		}
		return buildLimits(input, nominal, nominal+tol, nominal-tol)
	}

	if m := asymmetricPattern.FindStringSubmatch(cleaned); m != nil {
		nominal, upper, err := parsePair(m[1], m[2])
		if err != nil {
			return spc.Limits{}, &ParseError{Input: input, Reason: err.Error()}
		}
		lower, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return spc.Limits{}, &ParseError{Input: input, Reason: err.Error()}
		}
		return buildLimits(input, nominal, nominal+upper, nominal-lower)
	}

	return spc.Limits{}, &ParseError{Input: input, Reason: "unrecognized tolerance format"}
}

func parsePair(a, b string) (float64, float64, error) {
	first, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, err
	}
	second, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func buildLimits(input string, nominal, usl, lsl float64) (spc.Limits, error) {
	limits := spc.Limits{USL: usl, LSL: lsl, Target: nominal}
	if !limits.IsValid() {
		return spc.Limits{}, &ParseError{Input: input, Reason: "tolerances collapse the specification band"}
	}
	return limits, nil
}
