package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a Schedule driven by a 5-field cron expression
// (minute hour day-of-month month day-of-week). Fields accept "*", single
// values, ranges "a-b", lists "a,b,c", and steps "*/n" or "a-b/n". As in
// classic cron, restricting both day fields matches days satisfying either.
//
//	"*/5 * * * *"   every 5 minutes
//	"0 21 * * *"    daily at 21:00
//	"0 0 * * 0"     Sundays at midnight
type CronExpression struct {
	raw    string
	minute cronField
	hour   cronField
	dom    cronField
	month  cronField
	dow    cronField

	// Standard cron ORs day-of-month and day-of-week when both are
	// restricted; these record whether each field was written "*...".
	domAll bool
	dowAll bool
}

// cronField is the set of allowed values for one field, one bit per value.
type cronField uint64

func (f cronField) has(v int) bool { return f&(1<<uint(v)) != 0 }

// ParseCronExpression parses a 5-field cron expression.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}

	ce := &CronExpression{raw: expr}
	for _, part := range []struct {
		name string
		spec string
		lo   int
		hi   int
		dst  *cronField
	}{
		{"minute", fields[0], 0, 59, &ce.minute},
		{"hour", fields[1], 0, 23, &ce.hour},
		{"day", fields[2], 1, 31, &ce.dom},
		{"month", fields[3], 1, 12, &ce.month},
		{"weekday", fields[4], 0, 6, &ce.dow},
	} {
		f, err := parseCronField(part.spec, part.lo, part.hi)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", part.name, err)
		}
		*part.dst = f
	}
	ce.domAll = strings.HasPrefix(fields[2], "*")
	ce.dowAll = strings.HasPrefix(fields[4], "*")

	return ce, nil
}

// parseCronField builds the value set for one field. Every term of a list
// may carry its own step suffix.
func parseCronField(spec string, lo, hi int) (cronField, error) {
	var f cronField

	for _, term := range strings.Split(spec, ",") {
		term = strings.TrimSpace(term)

		step := 1
		if base, s, ok := strings.Cut(term, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("bad step %q", s)
			}
			step, term = n, base
		}

		start, end := lo, hi
		switch {
		case term == "*":
		case strings.Contains(term, "-"):
			a, b, _ := strings.Cut(term, "-")
			var err error
			if start, err = strconv.Atoi(a); err != nil {
				return 0, fmt.Errorf("bad range %q", term)
			}
			if end, err = strconv.Atoi(b); err != nil {
				return 0, fmt.Errorf("bad range %q", term)
			}
		default:
			n, err := strconv.Atoi(term)
			if err != nil {
				return 0, fmt.Errorf("bad value %q", term)
			}
			start = n
			if step == 1 {
				end = n
			} else {
				// "n/s" runs from n to the top of the field.
				end = hi
			}
		}

		if start < lo || end > hi || start > end {
			return 0, fmt.Errorf("value out of range [%d-%d]: %q", lo, hi, term)
		}
		for v := start; v <= end; v += step {
			f |= 1 << uint(v)
		}
	}

	return f, nil
}

// String returns the original cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute strictly after the given time.
// A firing at exactly the given instant is not returned again, so the
// scheduler never double-fires. The zero time means no match within a year.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Add(time.Minute).Truncate(time.Minute)

	// Skip by the widest non-matching unit instead of scanning every
	// minute of the year.
	for limit := t.AddDate(1, 0, 1); t.Before(limit); {
		if !ce.month.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
			continue
		}
		if !ce.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
			continue
		}
		if !ce.hour.has(t.Hour()) {
			t = t.Truncate(time.Hour).Add(time.Hour)
			continue
		}
		if ce.minute.has(t.Minute()) {
			return t
		}
		t = t.Add(time.Minute)
	}

	return time.Time{}
}

// dayMatches applies the classic cron day rule: when both day-of-month and
// day-of-week are restricted, a day matching either fires; otherwise the
// restricted one governs.
func (ce *CronExpression) dayMatches(t time.Time) bool {
	domHit := ce.dom.has(t.Day())
	dowHit := ce.dow.has(int(t.Weekday()))
	if ce.domAll || ce.dowAll {
		return domHit && dowHit
	}
	return domHit || dowHit
}
