package align

import (
	"fmt"
	"strings"
)

// Registration selects how the start of the leading edges is registered.
type Registration string

const (
	RegistrationFixed       Registration = "fixed"
	RegistrationTrimLeading Registration = "trim_leading"
)

// DefaultTrimFraction is the share of each leading edge a trimmed path may skip.
const DefaultTrimFraction = 0.2

// ParseRegistration validates a configuration value. Empty means fixed.
func ParseRegistration(value string) (Registration, error) {
	switch r := Registration(strings.ToLower(strings.TrimSpace(value))); r {
	case RegistrationFixed, RegistrationTrimLeading:
		return r, nil
	case "":
		return RegistrationFixed, nil
	default:
		return "", fmt.Errorf("unknown registration %q", value)
	}
}

// freeStart returns how many leading samples on each axis may open a path.
func (a *Aligner) freeStart() int {
	if a.registration != RegistrationTrimLeading {
		return 0
	}
	return int(a.trim * float64(a.samples))
}
