package aircraft

import "fmt"

// Squawk is a four-digit octal transponder code. The canonical
// representation is always this fixed-width string — never a bare
// number — so range tables and watchlists compare apples to apples.
type Squawk string

// ParseSquawk validates and normalizes a squawk code. Numeric config
// values (e.g. 7700) must be formatted to four digits before calling
// this, since a Squawk is never coerced from an int at this boundary.
func ParseSquawk(s string) (Squawk, error) {
	if len(s) != 4 {
		return "", fmt.Errorf("squawk %q: must be exactly 4 digits", s)
	}
	for _, r := range s {
		if r < '0' || r > '7' {
			return "", fmt.Errorf("squawk %q: digits must be octal (0-7)", s)
		}
	}
	return Squawk(s), nil
}

// MustSquawk panics on an invalid code; used only for compile-time-known
// constants (watchlists, well-known codes) where the input is literal.
func MustSquawk(s string) Squawk {
	sq, err := ParseSquawk(s)
	if err != nil {
		panic(err)
	}
	return sq
}

const (
	SquawkGroundTest     Squawk = "0002"
	SquawkVFRConspicuity Squawk = "7000"
	SquawkIFRConspicuity Squawk = "2000"
	SquawkHijack         Squawk = "7500"
	SquawkRadioFailure   Squawk = "7600"
	SquawkEmergency      Squawk = "7700"
	SquawkDisplay        Squawk = "7003"
	SquawkAerobatics     Squawk = "7004"
)

// EmergencySquawks is the set tested by the emergency-code anomaly rules.
var EmergencySquawks = map[Squawk]bool{
	SquawkHijack:       true,
	SquawkRadioFailure: true,
	SquawkEmergency:    true,
}
