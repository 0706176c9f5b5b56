package chromatography

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultStandardMassMg is the heptane mass weighed into the dilution
	DefaultStandardMassMg = 103.8
	// DefaultStandardVolumeML is the total dilution volume
	DefaultStandardVolumeML = 10.0
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// InternalStandard holds the parameters of the co-injected reference compound
type InternalStandard struct {
	Component Component `json:"component" yaml:"component" validate:"required"`
	MassMg    float64   `json:"mass_mg" yaml:"mass_mg" validate:"gt=0"`
	VolumeML  float64   `json:"volume_ml" yaml:"volume_ml" validate:"gt=0"`
}

// DefaultInternalStandard returns 103.8 mg of heptane in 10 mL
func DefaultInternalStandard() InternalStandard {
	return InternalStandard{
		Component: Heptane,
		MassMg:    DefaultStandardMassMg,
		VolumeML:  DefaultStandardVolumeML,
	}
}

// ConcentrationMgML returns mass / volume
func (s InternalStandard) ConcentrationMgML() float64 {
	return s.MassMg / s.VolumeML
}

// Validate checks the standard parameters
func (s InternalStandard) Validate() error {
	if err := structValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStandard, err)
	}
	return nil
}

// Config is the immutable engine configuration. Different chemistries use
// different Config values; nothing is global.
type Config struct {
	Windows  *WindowTable
	Standard InternalStandard
}

// DefaultConfig returns the biodiesel catalogue with the heptane standard
func DefaultConfig() Config {
	return Config{
		Windows:  DefaultWindowTable(),
		Standard: DefaultInternalStandard(),
	}
}

// requiredComponents are read by the calculator and must be catalogued
var requiredComponents = []Component{FAMEs, Monoglycerides, Diglycerides, Triglycerides}

// Validate checks that the configuration can drive a Calculator
func (c Config) Validate() error {
	if c.Windows == nil {
		return fmt.Errorf("%w: no window table", ErrInvalidWindow)
	}
	if err := c.Standard.Validate(); err != nil {
		return err
	}
	if !c.Windows.Has(c.Standard.Component) {
		return fmt.Errorf("%w: standard %q", ErrUnknownComponent, c.Standard.Component)
	}
	for _, comp := range requiredComponents {
		if !c.Windows.Has(comp) {
			return fmt.Errorf("%w: %q is required by the calculator", ErrUnknownComponent, comp)
		}
	}
	return nil
}
