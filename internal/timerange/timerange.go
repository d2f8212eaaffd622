// Package timerange normalizes the many time inputs accepted by the tool
// layer (relative tokens, now-anchored offsets, absolute timestamps, epoch
// values) into a single [start, end) pair in epoch milliseconds.
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is a resolved half-open time window. StartMs < EndMs always holds
// for ranges produced by Resolve.
type Range struct {
	StartMs int64
	EndMs   int64
}

// StartNs and EndNs return the bounds in epoch nanoseconds, the unit the
// services endpoint expects.
func (r Range) StartNs() int64 { return r.StartMs * int64(time.Millisecond) }
func (r Range) EndNs() int64   { return r.EndMs * int64(time.Millisecond) }

// Error reports an input that matched no accepted time format, or a range
// that resolved to start >= end.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	if e.Input == "" {
		return "invalid time range: " + e.Reason
	}
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

const (
	// DefaultWindow is the window used when neither start nor end is given.
	DefaultWindow = time.Hour
	// DefaultStepSeconds is the fallback query step interval.
	DefaultStepSeconds = 60
)

type options struct {
	window time.Duration
}

// Option adjusts resolution defaults per call site.
type Option func(*options)

// WithDefaultWindow overrides the window applied when start is omitted.
func WithDefaultWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

var (
	relativeRe = regexp.MustCompile(`^(\d+)([smhd])$`)
	nowRe      = regexp.MustCompile(`^now(?:-(\d+)([smhd]))?$`)
)

// Resolve normalizes raw start/end/duration inputs into a Range anchored at
// the supplied now. It is deterministic: the caller injects the clock.
//
// Precedence: explicit start/end win, then a duration window ending at now,
// then the default window. Either
// bound may independently be a relative token ("30m" meaning now-30m), a
// now-anchored offset ("now-2h"), an RFC 3339 timestamp, or an epoch value
// (milliseconds when >= 1e12, seconds otherwise).
func Resolve(rawStart, rawEnd, duration string, now time.Time, opts ...Option) (Range, error) {
	o := options{window: DefaultWindow}
	for _, opt := range opts {
		opt(&o)
	}

	end := now
	if s := strings.TrimSpace(rawEnd); s != "" {
		t, err := parseInstant(s, now)
		if err != nil {
			return Range{}, err
		}
		end = t
	}

	var start time.Time
	switch {
	case strings.TrimSpace(rawStart) != "":
		t, err := parseInstant(strings.TrimSpace(rawStart), now)
		if err != nil {
			return Range{}, err
		}
		start = t
	case strings.TrimSpace(duration) != "":
		d, err := ParseWindow(duration)
		if err != nil {
			return Range{}, err
		}
		start = end.Add(-d)
	default:
		start = end.Add(-o.window)
	}

	r := Range{StartMs: start.UnixMilli(), EndMs: end.UnixMilli()}
	if r.StartMs >= r.EndMs {
		return Range{}, &Error{Reason: fmt.Sprintf("start (%d) must be before end (%d)", r.StartMs, r.EndMs)}
	}
	return r, nil
}

// parseInstant resolves a single time token against now.
func parseInstant(raw string, now time.Time) (time.Time, error) {
	lower := strings.ToLower(raw)

	if m := nowRe.FindStringSubmatch(lower); m != nil {
		if m[1] == "" {
			return now, nil
		}
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * unitDuration(m[2])), nil
	}

	if m := relativeRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * unitDuration(m[2])), nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Bare integers below 1e12 are epoch seconds, not milliseconds.
		if n < 1e12 {
			return time.Unix(n, 0).UTC(), nil
		}
		return time.UnixMilli(n).UTC(), nil
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, &Error{Input: raw, Reason: "matches no accepted time format"}
}

// ParseWindow parses a duration token like "2h" or "90m". A bare integer is
// treated as minutes.
func ParseWindow(raw string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return time.Duration(n) * unitDuration(m[2]), nil
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Minute, nil
	}
	return 0, &Error{Input: raw, Reason: "matches no accepted duration format"}
}

// StepSeconds normalizes a step argument into whole seconds. JSON numbers
// arrive as float64; strings may carry a unit suffix. Anything unparseable
// falls back to the default.
func StepSeconds(v any) int {
	switch step := v.(type) {
	case nil:
		return DefaultStepSeconds
	case float64:
		if step > 0 {
			return int(step)
		}
	case int:
		if step > 0 {
			return step
		}
	case string:
		s := strings.ToLower(strings.TrimSpace(step))
		if m := relativeRe.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return int(time.Duration(n) * unitDuration(m[2]) / time.Second)
		}
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return DefaultStepSeconds
}

func unitDuration(unit string) time.Duration {
	switch unit {
	case "s":
		return time.Second
	case "m":
		return time.Minute
	case "h":
		return time.Hour
	case "d":
		return 24 * time.Hour
	}
	return 0
}
