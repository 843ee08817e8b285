package sim

import "fmt"

// DomainError reports a mathematically invalid input, detected at stage
// entry before any integration work.
type DomainError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: %s=%g: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports an unknown mode/combiner selection or a
// missing required parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NumericalInstabilityError reports detected divergence during
// integration: a non-finite state, or an explicit-scheme stability bound
// violated without an auto-sub-stepping fallback. Step and Time identify
// the offending point in the run.
type NumericalInstabilityError struct {
	Stage  string
	Step   int
	Time   float64
	Reason string
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("numerical instability in %s at step %d (t=%g h): %s",
		e.Stage, e.Step, e.Time, e.Reason)
}

// CalibrationError reports a root-finder that failed to bracket the
// target or to converge within its iteration budget.
type CalibrationError struct {
	Parameter  string
	Reason     string
	Iterations int
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibration of %s failed after %d iterations: %s",
		e.Parameter, e.Iterations, e.Reason)
}
