package billing

// =============================================================================
// SCHEDULE HINT ESTIMATOR
// =============================================================================

// EstimateLessons computes an expected lesson count for one enrollment in a
// period by counting calendar days whose weekday is in the course's weekly
// schedule.
//
// The estimate is advisory: callers apply it only to attendance records
// whose current count is exactly 0, so deliberate entries are never
// overwritten. It has an opinion only for per-lesson enrollments in group
// courses with a configured schedule; everything else returns 0.
//
// The only failure mode is invalid calendar input (ErrInvalidPeriod).
func EstimateLessons(en Enrollment, c Course, p Period) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if en.BillingMode != BillingPerLesson {
		return 0, nil
	}
	if c.Type != CourseGroup || len(c.ScheduleDays) == 0 {
		return 0, nil
	}
	return p.Weekdays(c.HasScheduleDay), nil
}
