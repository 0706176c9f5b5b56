package chromatography

// TotalArea sums the area of the given peaks; an empty slice sums to 0
func TotalArea(peaks []Peak) float64 {
	total := 0.0
	for _, p := range peaks {
		total += p.Area
	}
	return total
}

// ComponentArea sums the area of the peaks classified under c
func (t *WindowTable) ComponentArea(peaks []Peak, c Component) (float64, error) {
	matched, err := t.Classify(peaks, c)
	if err != nil {
		return 0, err
	}
	return TotalArea(matched), nil
}

// TotalAreaExcludingStandard returns the total area minus the area of the
// standard component. The result is not clamped: a negative value indicates
// malformed input and is reported as a warning by the processor.
func (t *WindowTable) TotalAreaExcludingStandard(peaks []Peak, standard Component) (float64, error) {
	stdArea, err := t.ComponentArea(peaks, standard)
	if err != nil {
		return 0, err
	}
	return TotalArea(peaks) - stdArea, nil
}
