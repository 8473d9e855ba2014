package domain

import "time"

// PeriodKey identifies one calendar month.
type PeriodKey struct {
	Year  int
	Month int
}

func (k PeriodKey) Before(o PeriodKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Schedule lists every calendar month from the registration month
// through the as-of month, oldest first. A subscriber registered in the
// current month yields exactly one entry.
func Schedule(registeredOn, asOf time.Time) []PeriodKey {
	reg := civil(registeredOn)
	end := civil(asOf)
	if end.Before(reg) {
		return nil
	}

	keys := make([]PeriodKey, 0, 12)
	y, m := reg.Year(), int(reg.Month())
	endY, endM := end.Year(), int(end.Month())
	for y < endY || (y == endY && m <= endM) {
		keys = append(keys, PeriodKey{Year: y, Month: m})
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return keys
}

// DueDate places the period's due date on the registration day of
// month, clamped to the month's last day when it would overflow.
func DueDate(key PeriodKey, registeredOn time.Time) time.Time {
	day := civil(registeredOn).Day()
	last := daysIn(key.Year, time.Month(key.Month))
	if day > last {
		day = last
	}
	return time.Date(key.Year, time.Month(key.Month), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StatusAt derives an unpaid period's status from its due date.
func StatusAt(dueDate, asOf time.Time) PeriodStatus {
	if civil(dueDate).Before(civil(asOf)) {
		return PeriodOverdue
	}
	return PeriodPending
}
