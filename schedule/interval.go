package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// maxDays is the largest day count a time.Duration can hold.
const maxDays = math.MaxInt64 / int64(day)

// ParseInterval parses a positive duration. In addition to the units
// accepted by time.ParseDuration it accepts a leading day count, as in
// "7d" or "1d12h".
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	d, err := time.ParseDuration(s)
	if err != nil {
		days, rest, ok := strings.Cut(s, "d")
		if !ok {
			return 0, fmt.Errorf("invalid interval %q (examples: 30m, 1h, 7d, 1d12h)", s)
		}
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid interval %q: bad day count", s)
		}
		if int64(n) > maxDays {
			return 0, fmt.Errorf("invalid interval %q: too long", s)
		}
		d = time.Duration(n) * day
		if rest != "" {
			extra, err := time.ParseDuration(rest)
			if err != nil {
				return 0, fmt.Errorf("invalid interval %q: %w", s, err)
			}
			if extra > math.MaxInt64-d {
				return 0, fmt.Errorf("invalid interval %q: too long", s)
			}
			d += extra
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("invalid interval %q: must be positive", s)
	}
	return d, nil
}

// FormatInterval formats d using days, hours, minutes and seconds,
// omitting zero components. Sub-second precision is dropped.
func FormatInterval(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return "0s"
	}

	var b strings.Builder
	for _, unit := range []struct {
		size   time.Duration
		suffix string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	} {
		if n := d / unit.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, unit.suffix)
			d -= n * unit.size
		}
	}
	return b.String()
}
