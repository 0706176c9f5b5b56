package chromatography

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CleanResult is the outcome of numeric coercion over raw rows
type CleanResult struct {
	Peaks   []Peak       `json:"peaks"`
	Dropped []DroppedRow `json:"dropped,omitempty"`
}

// Clean coerces raw rows into peaks. Rows whose retention time or area cannot
// be parsed as a finite number are dropped and reported; an unparsable height
// is treated as absent. Clean never fails.
func Clean(raw []RawPeak) CleanResult {
	res := CleanResult{Peaks: make([]Peak, 0, len(raw))}

	for i, r := range raw {
		t, err := ParseNumber(r.RetentionTime)
		if err != nil {
			res.Dropped = append(res.Dropped, DroppedRow{Row: r.Row, Index: i, Reason: "retention time: " + err.Error()})
			continue
		}
		a, err := ParseNumber(r.Area)
		if err != nil {
			res.Dropped = append(res.Dropped, DroppedRow{Row: r.Row, Index: i, Reason: "area: " + err.Error()})
			continue
		}

		p := Peak{RetentionTime: t, Area: a, Row: r.Row}
		if h, err := ParseNumber(r.Height); err == nil {
			p.Height = &h
		}
		res.Peaks = append(res.Peaks, p)
	}
	return res
}

// ParseNumber converts a loosely typed cell into a finite float64. Strings may
// carry surrounding spaces, thousands separators or a decimal comma.
func ParseNumber(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing value")
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case uint32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x.String())
		}
		f = parsed
	case string:
		parsed, err := parseNumericString(x)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	return f, nil
}

// parseNumericString accepts plain decimals, a decimal comma ("0,975",
// "7,250"), dot grouping with a decimal comma ("1.234,5") and comma grouping
// with a decimal point ("1,234.5", "12,000,000"). A lone comma is always the
// decimal separator. Any other mix of separators is rejected.
func parseNumericString(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	if s == "" {
		return 0, fmt.Errorf("missing value")
	}

	sign, body := "", s
	if body[0] == '-' || body[0] == '+' {
		sign, body = body[:1], body[1:]
	}

	commas, dots := strings.Count(body, ","), strings.Count(body, ".")
	normalized := s
	switch {
	case commas == 0 && dots <= 1:
	case commas == 0:
		if !isGrouped(body, ".") {
			return 0, fmt.Errorf("ambiguous digit grouping: %q", s)
		}
		normalized = sign + strings.ReplaceAll(body, ".", "")
	case commas == 1 && dots == 0:
		normalized = sign + strings.Replace(body, ",", ".", 1)
	case dots == 0:
		if !isGrouped(body, ",") {
			return 0, fmt.Errorf("ambiguous digit grouping: %q", s)
		}
		normalized = sign + strings.ReplaceAll(body, ",", "")
	default:
		lastComma, lastDot := strings.LastIndex(body, ","), strings.LastIndex(body, ".")
		intPart, sep, count := body[:lastDot], ",", dots
		if lastComma > lastDot {
			intPart, sep, count = body[:lastComma], ".", commas
		}
		if count != 1 || !isGrouped(intPart, sep) {
			return 0, fmt.Errorf("ambiguous digit grouping: %q", s)
		}
		frac := body[max(lastComma, lastDot)+1:]
		normalized = sign + strings.ReplaceAll(intPart, sep, "") + "." + frac
	}

	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// isGrouped reports whether s is an integer written in thousands groups:
// a leading group of 1-3 digits without a leading zero, then groups of
// exactly three digits
func isGrouped(s, sep string) bool {
	groups := strings.Split(s, sep)
	if len(groups) < 2 {
		return false
	}
	lead := groups[0]
	if len(lead) == 0 || len(lead) > 3 || lead[0] == '0' || !allDigits(lead) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
