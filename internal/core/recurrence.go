package core

import (
	"fmt"
	"time"
)

// NextDue advances a schedule cursor by one occurrence of the given
// frequency. Calendar-month arithmetic preserves the day of month and
// clamps to the last day when the target month is shorter, so a monthly
// template anchored on Jan 31 fires on Feb 29 in a leap year and then
// on Mar 29 (the clamped day is the new anchor, there is no re-clamp
// back to 31).
//
// Pure and deterministic; safe to call without any store.
func NextDue(t time.Time, f Frequency) (time.Time, error) {
	switch f {
	case Daily:
		return t.AddDate(0, 0, 1), nil
	case Weekly:
		return t.AddDate(0, 0, 7), nil
	case Monthly:
		return addMonthsClamped(t, 1), nil
	case Quarterly:
		return addMonthsClamped(t, 3), nil
	case Yearly:
		return addMonthsClamped(t, 12), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", ErrValidation, f)
	}
}

// addMonthsClamped adds whole calendar months without the day-overflow
// normalization of time.AddDate (which would turn Jan 31 + 1 month into
// Mar 2).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, _ := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	h, min, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, h, min, sec, t.Nanosecond(), t.Location())
}
