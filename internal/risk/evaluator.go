// Package risk scores a new login against the account's recent history.
//
// The evaluator is advisory only: it tags events and triggers alerts but
// never gates access. Thresholds are policy parameters, not contract.
package risk

import (
	"fmt"
	"strings"
	"time"
)

// unknownLocation is what geolocation failures resolve to; unknown
// locations are excluded from judgment rather than treated as novel.
const unknownLocation = "Unknown"

// Config carries the heuristic thresholds.
type Config struct {
	// HistoryDepth is how many recent successful logins to compare against.
	HistoryDepth int
	// VelocityWindow is the impossible-travel window: two different known
	// locations within it flag the login.
	VelocityWindow time.Duration
	// FlagNewDevice flags a device fingerprint absent from history.
	FlagNewDevice bool
}

// Input is the context of the login under evaluation.
type Input struct {
	UserID   string
	IP       string
	Location string
	Device   string
}

// Sample is one recent successful login drawn from the security event log.
type Sample struct {
	Time     time.Time
	IP       string
	Location string
	Device   string
}

// Assessment is the evaluator verdict.
type Assessment struct {
	Suspicious bool
	Reason     string
}

// Evaluator is safe for concurrent use.
type Evaluator struct {
	config Config
}

// New normalizes cfg and returns an evaluator.
func New(cfg Config) *Evaluator {
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = 10
	}
	if cfg.VelocityWindow <= 0 {
		cfg.VelocityWindow = time.Hour
	}
	return &Evaluator{config: cfg}
}

// Evaluate compares the login against history (expected most recent first).
// An empty history never flags: there is nothing to deviate from.
func (e *Evaluator) Evaluate(in Input, history []Sample) Assessment {
	if len(history) == 0 {
		return Assessment{}
	}
	if len(history) > e.config.HistoryDepth {
		history = history[:e.config.HistoryDepth]
	}

	if a := e.checkVelocity(in, history[0]); a.Suspicious {
		return a
	}
	if a := e.checkCountry(in, history); a.Suspicious {
		return a
	}
	if e.config.FlagNewDevice {
		if a := checkDevice(in, history); a.Suspicious {
			return a
		}
	}
	return Assessment{}
}

// checkVelocity flags two different known locations within the travel
// window. String-level comparison is deliberate: the geolocation
// collaborator returns opaque "City, Country" labels, not coordinates.
func (e *Evaluator) checkVelocity(in Input, last Sample) Assessment {
	if !knownLocation(in.Location) || !knownLocation(last.Location) {
		return Assessment{}
	}
	if in.Location == last.Location {
		return Assessment{}
	}
	if elapsed := time.Since(last.Time); elapsed >= 0 && elapsed < e.config.VelocityWindow {
		return Assessment{
			Suspicious: true,
			Reason: fmt.Sprintf("implausible travel: %s to %s within %s",
				last.Location, in.Location, elapsed.Round(time.Minute)),
		}
	}
	return Assessment{}
}

func (e *Evaluator) checkCountry(in Input, history []Sample) Assessment {
	country := countryOf(in.Location)
	if country == "" {
		return Assessment{}
	}

	seen := false
	for _, sample := range history {
		if countryOf(sample.Location) == country {
			seen = true
			break
		}
	}
	if !seen {
		return Assessment{
			Suspicious: true,
			Reason:     fmt.Sprintf("login from new country: %s", country),
		}
	}
	return Assessment{}
}

func checkDevice(in Input, history []Sample) Assessment {
	if in.Device == "" {
		return Assessment{}
	}
	for _, sample := range history {
		if sample.Device == in.Device {
			return Assessment{}
		}
	}
	return Assessment{
		Suspicious: true,
		Reason:     "login from unrecognized device",
	}
}

// countryOf extracts the trailing segment of a "City, Country" label.
func countryOf(location string) string {
	if !knownLocation(location) {
		return ""
	}
	if idx := strings.LastIndex(location, ","); idx >= 0 {
		return strings.TrimSpace(location[idx+1:])
	}
	return strings.TrimSpace(location)
}

func knownLocation(location string) bool {
	return location != "" && !strings.EqualFold(location, unknownLocation)
}
