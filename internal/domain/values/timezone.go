package values

import (
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is used when neither the lead nor the campaign has a
// loadable timezone.
const DefaultTimezone = "America/New_York"

// ResolveLocation returns the first loadable IANA zone among names, then
// DefaultTimezone, then UTC.
func ResolveLocation(names ...string) *time.Location {
	for _, name := range append(names, DefaultTimezone) {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
