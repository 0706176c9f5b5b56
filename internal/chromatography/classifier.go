package chromatography

// Classify returns the peaks whose retention time falls inside the component
// window, preserving input order. No match yields an empty slice, not an error.
func (t *WindowTable) Classify(peaks []Peak, c Component) ([]Peak, error) {
	w, err := t.WindowOf(c)
	if err != nil {
		return nil, err
	}

	matched := make([]Peak, 0)
	for _, p := range peaks {
		if w.Contains(p.RetentionTime) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
