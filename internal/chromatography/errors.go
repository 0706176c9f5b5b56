package chromatography

import "errors"

var (
	// ErrUnknownComponent is returned when a component is not in the window catalogue.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrEmptyExperiment is returned when statistics are requested over zero samples.
	ErrEmptyExperiment = errors.New("empty experiment")

	// ErrMissingInternalStandard marks a quantification without a standard peak.
	ErrMissingInternalStandard = errors.New("missing internal standard")

	// ErrInvalidSampleMass marks a quantification requested with a non-positive mass.
	ErrInvalidSampleMass = errors.New("invalid sample mass")

	// ErrInvalidWindow is returned for malformed retention-time windows.
	ErrInvalidWindow = errors.New("invalid component window")

	// ErrInvalidStandard is returned for malformed internal-standard parameters.
	ErrInvalidStandard = errors.New("invalid internal standard")
)
