package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DurationUnit is one of the three supported warranty units.
type DurationUnit string

const (
	UnitDay   DurationUnit = "d"
	UnitMonth DurationUnit = "m"
	UnitYear  DurationUnit = "y"
)

// Days returns the fixed length of one unit. Months and years are not calendar aware.
func (u DurationUnit) Days() int {
	switch u {
	case UnitDay:
		return 1
	case UnitMonth:
		return 30
	case UnitYear:
		return 365
	}
	return 0
}

// Valid reports whether u is a known unit.
func (u DurationUnit) Valid() bool {
	return u.Days() > 0
}

// MaxDurationAmount bounds the numeric part of a duration token.
const MaxDurationAmount = 999999

// Duration is a warranty term. Lifetime coverage is the finite Lifetime value.
type Duration struct {
	Amount int          `json:"amount"`
	Unit   DurationUnit `json:"unit"`
}

// Lifetime is the sentinel used for "lifetime" products: 150 years.
var Lifetime = Duration{Amount: 150, Unit: UnitYear}

// IsLifetime reports whether d is the lifetime sentinel.
func (d Duration) IsLifetime() bool {
	return d == Lifetime
}

// Valid reports whether d satisfies the amount and unit invariants.
func (d Duration) Valid() bool {
	return d.Amount > 0 && d.Amount <= MaxDurationAmount && d.Unit.Valid()
}

// Days returns the total length in days.
func (d Duration) Days() int {
	return d.Amount * d.Unit.Days()
}

// End returns the last covered instant for an order completed at start.
func (d Duration) End(start time.Time) time.Time {
	return start.UTC().AddDate(0, 0, d.Days())
}

func (d Duration) String() string {
	return strconv.Itoa(d.Amount) + string(d.Unit)
}

var durationPattern = regexp.MustCompile(`^(\d+)([dmy])$`)

// ParseDuration parses the stored form ("12m", "45d", "3y") or "lifetime".
func ParseDuration(raw string) (Duration, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "lifetime" {
		return Lifetime, nil
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidInput, raw)
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return Duration{}, fmt.Errorf("%w: duration %q", ErrInvalidInput, raw)
	}
	d := Duration{Amount: amount, Unit: DurationUnit(m[2])}
	if !d.Valid() {
		return Duration{}, fmt.Errorf("%w: duration %q out of range", ErrInvalidInput, raw)
	}
	return d, nil
}

// MarshalJSON stores durations in their short string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the short string form.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
