package bootstrap

import (
	"strings"
	"time"

	"supplyguard/internal/bootstrap/config"
	"supplyguard/internal/errs"
)

// Clock is the process-wide notion of "now".
type Clock func() time.Time

// NewClock pins the calendar date to cfg.Today while letting the time of day run.
func NewClock(cfg config.ClockConfig, wall func() time.Time) (Clock, error) {
	if wall == nil {
		wall = time.Now
	}

	loc := time.Local
	if name := strings.TrimSpace(cfg.Location); name != "" && name != "Local" {
		loaded, err := time.LoadLocation(name)
		if err != nil {
			return nil, errs.Wrapf(err, "load clock location %q", name)
		}
		loc = loaded
	}

	if strings.TrimSpace(cfg.Today) == "" {
		return func() time.Time { return wall().In(loc) }, nil
	}

	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(cfg.Today), loc)
	if err != nil {
		return nil, errs.Wrapf(err, "parse clock.today %q", cfg.Today)
	}

	start := wall().In(loc)
	pinned := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), loc)
	offset := pinned.Sub(start)
	return func() time.Time { return wall().In(loc).Add(offset) }, nil
}
