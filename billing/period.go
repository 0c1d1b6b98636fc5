package billing

import "time"

// =============================================================================
// PERIOD - The monthly billing period
// =============================================================================

// Period identifies one billing month. Attendance, draft generation, and
// issuance all operate on a Period; it is the unit of reconciliation.
type Period struct {
	Year  int
	Month int
}

// NewPeriod validates the calendar inputs and returns the period.
// Month must be in 1..12 and Year must be plausible for a billing system.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate fails with ErrInvalidPeriod for out-of-range calendar input.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	if p.Year < 2000 || p.Year > 2200 {
		return ErrInvalidPeriod
	}
	return nil
}

// Bounds returns the first and last day of the period month.
func (p Period) Bounds() (start, end time.Time) {
	start = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return
}

// DaysInMonth returns the number of calendar days in the period.
func (p Period) DaysInMonth() int {
	_, end := p.Bounds()
	return end.Day()
}

// Weekdays counts calendar days in the period whose weekday satisfies match.
func (p Period) Weekdays(match func(time.Weekday) bool) int {
	start, end := p.Bounds()
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if match(d.Weekday()) {
			n++
		}
	}
	return n
}

func (p Period) String() string {
	start, _ := p.Bounds()
	return start.Format("2006-01")
}
