package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ─── Percent ────────────────────────────────────────────────────────────────

// PercentScale is the fixed-point denominator: 10000 basis points = 100%.
const PercentScale = 10_000

// Percent is a fixed-point fraction in basis points.
// All threshold math compares by integer cross-multiplication.
type Percent uint32

// ParsePercent accepts "0.51", "1", "51%" or "33.33%".
func ParsePercent(s string) (Percent, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty percentage")
	}
	var (
		v   uint64
		err error
	)
	if strings.HasSuffix(s, "%") {
		v, err = parseFixed(strings.TrimSpace(strings.TrimSuffix(s, "%")), 2)
	} else {
		v, err = parseFixed(s, 4)
	}
	if err != nil {
		return 0, fmt.Errorf("parse percentage %q: %w", s, err)
	}
	if v > PercentScale {
		return 0, fmt.Errorf("percentage %q exceeds 100%%", s)
	}
	return Percent(v), nil
}

// parseFixed parses a non-negative decimal into an integer scaled by 10^digits.
func parseFixed(s string, digits int) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing number")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > digits {
		return 0, fmt.Errorf("more than %d fractional digits", digits)
	}
	frac += strings.Repeat("0", digits-len(frac))
	w, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseUint(frac, 10, 32)
	if err != nil {
		return 0, err
	}
	scale := uint64(1)
	for range digits {
		scale *= 10
	}
	return w*scale + f, nil
}

// String renders the decimal form, e.g. "0.51".
func (p Percent) String() string {
	whole, frac := uint32(p)/PercentScale, uint32(p)%PercentScale
	if frac == 0 {
		return strconv.FormatUint(uint64(whole), 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%04d", whole, frac), "0")
}

// MarshalText implements encoding.TextMarshaler.
func (p Percent) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Percent) UnmarshalText(b []byte) error {
	v, err := ParsePercent(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ─── Threshold ──────────────────────────────────────────────────────────────

// ThresholdKind selects the rule that turns a weighted tally into an outcome.
type ThresholdKind int

const (
	AbsoluteCount      ThresholdKind = iota // yes ≥ weight
	AbsolutePercentage                      // yes / total ≥ percentage
	ThresholdQuorum                         // participating / total ≥ quorum and yes / participating ≥ threshold
)

// String returns the wire name.
func (k ThresholdKind) String() string {
	switch k {
	case AbsoluteCount:
		return "absolute_count"
	case AbsolutePercentage:
		return "absolute_percentage"
	case ThresholdQuorum:
		return "threshold_quorum"
	default:
		return "unknown"
	}
}

// Threshold is configured once and immutable.
// Weight is used by AbsoluteCount, Percentage by AbsolutePercentage,
// Percentage (threshold) and Quorum by ThresholdQuorum.
type Threshold struct {
	Kind       ThresholdKind
	Weight     uint64
	Percentage Percent
	Quorum     Percent
}

// String renders a human-readable rule.
func (t Threshold) String() string {
	switch t.Kind {
	case AbsoluteCount:
		return fmt.Sprintf("absolute count %d", t.Weight)
	case AbsolutePercentage:
		return fmt.Sprintf("absolute percentage %s", t.Percentage)
	case ThresholdQuorum:
		return fmt.Sprintf("threshold %s with quorum %s", t.Percentage, t.Quorum)
	default:
		return "unknown threshold"
	}
}

type thresholdJSON struct {
	AbsoluteCount *struct {
		Weight uint64 `json:"weight"`
	} `json:"absolute_count,omitempty"`
	AbsolutePercentage *struct {
		Percentage Percent `json:"percentage"`
	} `json:"absolute_percentage,omitempty"`
	ThresholdQuorum *struct {
		Threshold Percent `json:"threshold"`
		Quorum    Percent `json:"quorum"`
	} `json:"threshold_quorum,omitempty"`
}

// MarshalJSON encodes as a single-key tagged object.
func (t Threshold) MarshalJSON() ([]byte, error) {
	var raw thresholdJSON
	switch t.Kind {
	case AbsoluteCount:
		raw.AbsoluteCount = &struct {
			Weight uint64 `json:"weight"`
		}{t.Weight}
	case AbsolutePercentage:
		raw.AbsolutePercentage = &struct {
			Percentage Percent `json:"percentage"`
		}{t.Percentage}
	case ThresholdQuorum:
		raw.ThresholdQuorum = &struct {
			Threshold Percent `json:"threshold"`
			Quorum    Percent `json:"quorum"`
		}{t.Percentage, t.Quorum}
	default:
		return nil, fmt.Errorf("unknown threshold kind %d", t.Kind)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the MarshalJSON form.
func (t *Threshold) UnmarshalJSON(b []byte) error {
	var raw thresholdJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	set := 0
	if raw.AbsoluteCount != nil {
		set++
		*t = Threshold{Kind: AbsoluteCount, Weight: raw.AbsoluteCount.Weight}
	}
	if raw.AbsolutePercentage != nil {
		set++
		*t = Threshold{Kind: AbsolutePercentage, Percentage: raw.AbsolutePercentage.Percentage}
	}
	if raw.ThresholdQuorum != nil {
		set++
		*t = Threshold{Kind: ThresholdQuorum, Percentage: raw.ThresholdQuorum.Threshold, Quorum: raw.ThresholdQuorum.Quorum}
	}
	if set != 1 {
		return fmt.Errorf("threshold must set exactly one rule")
	}
	return nil
}
