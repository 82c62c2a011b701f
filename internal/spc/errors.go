package spc

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the engine's error taxonomy. Callers match with
// errors.Is; the concrete types below carry the failing values.
var (
	ErrInvalidSpecification    = errors.New("invalid specification limits")
	ErrInsufficientData        = errors.New("insufficient measurement data")
	ErrUnsupportedSubgroupSize = errors.New("unsupported subgroup size")
	ErrInvalidMeasurementData  = errors.New("invalid measurement data")
)

// SpecificationError reports specification limits that are non-finite or
// inverted (USL <= LSL). Non-recoverable for the call.
type SpecificationError struct {
	USL float64
	LSL float64
}

func (e *SpecificationError) Error() string {
	return fmt.Sprintf("invalid specification limits: usl=%g lsl=%g (require finite usl > lsl)", e.USL, e.LSL)
}

func (e *SpecificationError) Unwrap() error { return ErrInvalidSpecification }

// InsufficientDataError reports a series too short to form a single
// complete subgroup.
type InsufficientDataError struct {
	Count    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient measurement data: %d values, need at least %d", e.Count, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// SubgroupSizeError reports a subgroup size with no tabulated control-chart
// constants. Constants are empirically derived and never interpolated.
type SubgroupSizeError struct {
	Size      int
	Supported []int
}

func (e *SubgroupSizeError) Error() string {
	return fmt.Sprintf("unsupported subgroup size %d: no tabulated constants (supported %v)", e.Size, e.Supported)
}

func (e *SubgroupSizeError) Unwrap() error { return ErrUnsupportedSubgroupSize }

// MeasurementError reports a value that cannot be coerced to a finite
// number. Recoverable by the caller via manual re-entry; Index identifies
// the failing position in the input.
type MeasurementError struct {
	Index int
	Token string
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("invalid measurement at index %d: %q is not a finite number", e.Index, e.Token)
}

func (e *MeasurementError) Unwrap() error { return ErrInvalidMeasurementData }
