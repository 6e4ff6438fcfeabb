package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ─── Duration ───────────────────────────────────────────────────────────────

// DurationKind selects the unit a Duration is measured in.
type DurationKind int

const (
	DurationHeight DurationKind = iota // Count of blocks
	DurationTime                       // Wall-clock span
)

// Duration is a voting period measured either in blocks or in wall time.
type Duration struct {
	Kind   DurationKind
	Height uint64
	Time   time.Duration
}

// HeightDuration returns a block-count duration.
func HeightDuration(blocks uint64) Duration {
	return Duration{Kind: DurationHeight, Height: blocks}
}

// TimeDuration returns a wall-clock duration.
func TimeDuration(d time.Duration) Duration {
	return Duration{Kind: DurationTime, Time: d}
}

// IsZero reports whether the duration spans nothing.
func (d Duration) IsZero() bool {
	if d.Kind == DurationHeight {
		return d.Height == 0
	}
	return d.Time <= 0
}

// After returns the expiration d past the given block.
func (d Duration) After(b BlockInfo) Expiration {
	if d.Kind == DurationHeight {
		return AtHeight(b.Height + d.Height)
	}
	return AtTime(b.Time.Add(d.Time))
}

// String renders "3 blocks" or the time.Duration form.
func (d Duration) String() string {
	if d.Kind == DurationHeight {
		return fmt.Sprintf("%d blocks", d.Height)
	}
	return d.Time.String()
}

type durationJSON struct {
	Height *uint64 `json:"height,omitempty"`
	Time   *string `json:"time,omitempty"`
}

// MarshalJSON encodes as {"height":n} or {"time":"1h0m0s"}.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Kind == DurationHeight {
		return json.Marshal(durationJSON{Height: &d.Height})
	}
	s := d.Time.String()
	return json.Marshal(durationJSON{Time: &s})
}

// UnmarshalJSON decodes the MarshalJSON form.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw durationJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.Height != nil && raw.Time == nil:
		*d = HeightDuration(*raw.Height)
	case raw.Time != nil && raw.Height == nil:
		td, err := time.ParseDuration(*raw.Time)
		if err != nil {
			return fmt.Errorf("parse duration time: %w", err)
		}
		*d = TimeDuration(td)
	default:
		return fmt.Errorf("duration must set exactly one of height or time")
	}
	return nil
}

// ─── Expiration ─────────────────────────────────────────────────────────────

// ExpirationKind selects how an Expiration is compared against a block.
type ExpirationKind int

const (
	ExpiresNever ExpirationKind = iota
	ExpiresAtHeight
	ExpiresAtTime
)

// Expiration is a logical deadline compared against caller-supplied time.
type Expiration struct {
	Kind   ExpirationKind
	Height uint64
	Time   time.Time
}

// AtHeight expires once the block height reaches h.
func AtHeight(h uint64) Expiration { return Expiration{Kind: ExpiresAtHeight, Height: h} }

// AtTime expires once the block time reaches t.
func AtTime(t time.Time) Expiration { return Expiration{Kind: ExpiresAtTime, Time: t.UTC()} }

// Never does not expire.
func Never() Expiration { return Expiration{Kind: ExpiresNever} }

// IsExpired reports whether b is at or past the deadline.
func (e Expiration) IsExpired(b BlockInfo) bool {
	switch e.Kind {
	case ExpiresAtHeight:
		return b.Height >= e.Height
	case ExpiresAtTime:
		return !b.Time.Before(e.Time)
	default:
		return false
	}
}

// Plus shifts the deadline by d. Kinds must match.
func (e Expiration) Plus(d Duration) (Expiration, error) {
	switch {
	case e.Kind == ExpiresAtHeight && d.Kind == DurationHeight:
		return AtHeight(e.Height + d.Height), nil
	case e.Kind == ExpiresAtTime && d.Kind == DurationTime:
		return AtTime(e.Time.Add(d.Time)), nil
	case e.Kind == ExpiresNever:
		return e, nil
	default:
		return e, fmt.Errorf("%w: cannot add %s to %s", ErrWrongExpiration, d, e)
	}
}

// Compare orders two expirations of the same kind (-1, 0, +1).
// Never sorts after everything. Mixing height and time is an error.
func (e Expiration) Compare(o Expiration) (int, error) {
	switch {
	case e.Kind == ExpiresNever && o.Kind == ExpiresNever:
		return 0, nil
	case e.Kind == ExpiresNever:
		return 1, nil
	case o.Kind == ExpiresNever:
		return -1, nil
	case e.Kind != o.Kind:
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrWrongExpiration, e, o)
	case e.Kind == ExpiresAtHeight:
		return cmpUint(e.Height, o.Height), nil
	default:
		return e.Time.Compare(o.Time), nil
	}
}

// String renders a human-readable deadline.
func (e Expiration) String() string {
	switch e.Kind {
	case ExpiresAtHeight:
		return fmt.Sprintf("height %d", e.Height)
	case ExpiresAtTime:
		return e.Time.Format(time.RFC3339)
	default:
		return "never"
	}
}

type expirationJSON struct {
	AtHeight *uint64    `json:"at_height,omitempty"`
	AtTime   *time.Time `json:"at_time,omitempty"`
	Never    *struct{}  `json:"never,omitempty"`
}

// MarshalJSON encodes as {"at_height":n}, {"at_time":"..."} or {"never":{}}.
func (e Expiration) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case ExpiresAtHeight:
		return json.Marshal(expirationJSON{AtHeight: &e.Height})
	case ExpiresAtTime:
		return json.Marshal(expirationJSON{AtTime: &e.Time})
	default:
		return json.Marshal(expirationJSON{Never: &struct{}{}})
	}
}

// UnmarshalJSON decodes the MarshalJSON form.
func (e *Expiration) UnmarshalJSON(b []byte) error {
	var raw expirationJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.AtHeight != nil && raw.AtTime == nil && raw.Never == nil:
		*e = AtHeight(*raw.AtHeight)
	case raw.AtTime != nil && raw.AtHeight == nil && raw.Never == nil:
		*e = AtTime(*raw.AtTime)
	case raw.Never != nil && raw.AtHeight == nil && raw.AtTime == nil:
		*e = Never()
	default:
		return fmt.Errorf("expiration must set exactly one of at_height, at_time or never")
	}
	return nil
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
