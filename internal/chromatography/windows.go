package chromatography

import (
	"fmt"
	"math"
)

// ComponentWindow is an inclusive retention-time interval [Min, Max] in minutes
type ComponentWindow struct {
	Component Component `json:"component" yaml:"component"`
	Min       float64   `json:"t_min" yaml:"t_min"`
	Max       float64   `json:"t_max" yaml:"t_max"`
}

// Contains reports whether t lies inside the window, bounds included
func (w ComponentWindow) Contains(t float64) bool {
	return t >= w.Min && t <= w.Max
}

// validate checks the window bounds
func (w ComponentWindow) validate() error {
	if w.Component == "" {
		return fmt.Errorf("%w: empty component name", ErrInvalidWindow)
	}
	if math.IsNaN(w.Min) || math.IsNaN(w.Max) || math.IsInf(w.Min, 0) || math.IsInf(w.Max, 0) {
		return fmt.Errorf("%w: %s has non-finite bounds", ErrInvalidWindow, w.Component)
	}
	if w.Min > w.Max {
		return fmt.Errorf("%w: %s t_min %.3f > t_max %.3f", ErrInvalidWindow, w.Component, w.Min, w.Max)
	}
	return nil
}

// WindowTable is an immutable catalogue of component windows. Each component
// is tested independently; windows may overlap.
type WindowTable struct {
	windows map[Component]ComponentWindow
	order   []Component
}

// NewWindowTable builds a catalogue from the given windows
func NewWindowTable(windows ...ComponentWindow) (*WindowTable, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: catalogue is empty", ErrInvalidWindow)
	}

	t := &WindowTable{
		windows: make(map[Component]ComponentWindow, len(windows)),
		order:   make([]Component, 0, len(windows)),
	}
	for _, w := range windows {
		if err := w.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.windows[w.Component]; dup {
			return nil, fmt.Errorf("%w: duplicate component %s", ErrInvalidWindow, w.Component)
		}
		t.windows[w.Component] = w
		t.order = append(t.order, w.Component)
	}
	return t, nil
}

// DefaultWindows returns the standard biodiesel catalogue
func DefaultWindows() []ComponentWindow {
	return []ComponentWindow{
		{Component: Heptane, Min: 0.96, Max: 0.99},
		{Component: Methanol, Min: 2.20, Max: 2.35},
		{Component: FAMEs, Min: 6.50, Max: 11.50},
		{Component: Monoglycerides, Min: 7.40, Max: 8.60},
		{Component: Diglycerides, Min: 7.70, Max: 8.40},
		{Component: Triglycerides, Min: 7.00, Max: 7.25},
	}
}

// DefaultWindowTable returns the standard biodiesel catalogue as a table
func DefaultWindowTable() *WindowTable {
	t, err := NewWindowTable(DefaultWindows()...)
	if err != nil {
		panic(fmt.Sprintf("default window table: %v", err))
	}
	return t
}

// WindowOf returns the window of a component
func (t *WindowTable) WindowOf(c Component) (ComponentWindow, error) {
	w, ok := t.windows[c]
	if !ok {
		return ComponentWindow{}, fmt.Errorf("%w: %q", ErrUnknownComponent, c)
	}
	return w, nil
}

// Has reports whether the component is catalogued
func (t *WindowTable) Has(c Component) bool {
	_, ok := t.windows[c]
	return ok
}

// Components returns the catalogued components in construction order
func (t *WindowTable) Components() []Component {
	out := make([]Component, len(t.order))
	copy(out, t.order)
	return out
}

// Windows returns a copy of all windows in construction order
func (t *WindowTable) Windows() []ComponentWindow {
	out := make([]ComponentWindow, 0, len(t.order))
	for _, c := range t.order {
		out = append(out, t.windows[c])
	}
	return out
}
