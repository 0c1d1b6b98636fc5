/*
Package attendance implements the attendance ledger: per-(enrollment,
period) lesson counts that feed per-lesson invoice lines.

PURPOSE:
  Stores how many lessons each enrollment attended in a billing month and
  enforces the lock invariant: once a period is locked, counts are immutable
  until explicitly unlocked. Locking is what makes draft regeneration safe
  to run after the month is reconciled.

KEY OPERATIONS:
  GetOrInit:          read (or lazily offer) the record for one enrollment
  SetCount:           single-record edit, rejected with ErrLockedPeriod
  ApplyCounts:        THE batch mutation entry point; all bulk paths funnel
                      through it so the lock check lives in exactly one place
  BulkIncrement:      "+1 to all" seeded with zero records for new enrollees
  ApplyScheduleHints: pre-fill zero counts from the course's weekly schedule
  SetLocked:          flip the lock flag for a period, counts untouched

SIDE EFFECTS:
  Confined to attendance storage. This package never touches invoices.

SEE ALSO:
  - billing/estimate.go: the schedule hint estimator
  - invoicing: consumes these counts during draft generation
*/
package attendance

import (
	"context"
	"log/slog"

	"github.com/tutora/billing-engine/billing"
)

// Store is the persistence the ledger needs: attendance records plus the
// catalog lookups used to seed records for newly active enrollments.
type Store interface {
	billing.AttendanceStore
	billing.CatalogStore
}

// Service provides attendance ledger operations.
type Service struct {
	store Store
	log   *slog.Logger
}

// New creates an attendance service.
func New(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// CountUpdate is one (enrollment, newCount) pair for ApplyCounts.
type CountUpdate struct {
	EnrollmentID int64
	Count        int
}

// GetOrInit returns the attendance record for a (student, course) pair in a
// period, or a zero-count unlocked record when none exists yet. The zero
// record is not persisted until its first write.
func (s *Service) GetOrInit(ctx context.Context, studentID, courseID int64, year, month int) (*billing.AttendanceRecord, error) {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return nil, err
	}
	en, err := s.store.FindEnrollment(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetAttendance(ctx, en.ID, year, month)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &billing.AttendanceRecord{EnrollmentID: en.ID, Year: year, Month: month}
	}
	return rec, nil
}

// SetCount sets the lesson count for one enrollment's record. Fails with
// ErrLockedPeriod when the record is locked. Negative counts clamp to 0.
func (s *Service) SetCount(ctx context.Context, enrollmentID int64, year, month, count int) error {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return err
	}
	if _, err := s.store.GetEnrollment(ctx, enrollmentID); err != nil {
		return err
	}
	rec, err := s.store.GetAttendance(ctx, enrollmentID, year, month)
	if err != nil {
		return err
	}
	if rec != nil && rec.Locked {
		return &billing.LockedPeriodError{EnrollmentID: enrollmentID, Year: year, Month: month}
	}
	if count < 0 {
		count = 0
	}
	if rec == nil {
		rec = &billing.AttendanceRecord{EnrollmentID: enrollmentID, Year: year, Month: month}
	}
	rec.Count = count
	return s.store.UpsertAttendance(ctx, rec)
}

// ApplyCounts is the single batch-mutation entry point. Locked records are
// skipped, negative counts clamp to 0, and missing records are created.
// Returns how many records were written.
func (s *Service) ApplyCounts(ctx context.Context, year, month int, updates []CountUpdate) (int, error) {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return 0, err
	}
	applied := 0
	for _, u := range updates {
		rec, err := s.store.GetAttendance(ctx, u.EnrollmentID, year, month)
		if err != nil {
			return applied, err
		}
		if rec != nil && rec.Locked {
			continue
		}
		if rec == nil {
			rec = &billing.AttendanceRecord{EnrollmentID: u.EnrollmentID, Year: year, Month: month}
		}
		rec.Count = u.Count
		if rec.Count < 0 {
			rec.Count = 0
		}
		if err := s.store.UpsertAttendance(ctx, rec); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// BulkIncrement adds 1 to every unlocked matching record. Zero-count records
// are created first for every active per-lesson enrollment that matches the
// filter, so students enrolled mid-month are included.
func (s *Service) BulkIncrement(ctx context.Context, year, month int, courseID *int64) (int, error) {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return 0, err
	}
	ens, err := s.store.ListPerLessonEnrollments(ctx, courseID)
	if err != nil {
		return 0, err
	}

	updates := make([]CountUpdate, 0, len(ens))
	for _, en := range ens {
		rec, err := s.store.GetAttendance(ctx, en.ID, year, month)
		if err != nil {
			return 0, err
		}
		current := 0
		if rec != nil {
			if rec.Locked {
				continue
			}
			current = rec.Count
		}
		updates = append(updates, CountUpdate{EnrollmentID: en.ID, Count: current + 1})
	}

	n, err := s.ApplyCounts(ctx, year, month, updates)
	if err != nil {
		return n, err
	}
	s.log.Info("attendance bulk increment", "period", billing.Period{Year: year, Month: month}, "changed", n)
	return n, nil
}

// ApplyScheduleHints pre-fills counts from each course's weekly schedule.
// Hints apply only to records whose current count is exactly 0, so
// deliberate entries are never overwritten; locked records are skipped by
// ApplyCounts as usual.
func (s *Service) ApplyScheduleHints(ctx context.Context, year, month int, courseID *int64) (int, error) {
	p, err := billing.NewPeriod(year, month)
	if err != nil {
		return 0, err
	}
	ens, err := s.store.ListPerLessonEnrollments(ctx, courseID)
	if err != nil {
		return 0, err
	}

	courses := make(map[int64]*billing.Course)
	var updates []CountUpdate
	for _, en := range ens {
		c, ok := courses[en.CourseID]
		if !ok {
			c, err = s.store.GetCourse(ctx, en.CourseID)
			if err != nil {
				return 0, err
			}
			courses[en.CourseID] = c
		}
		hint, err := billing.EstimateLessons(en, *c, p)
		if err != nil {
			return 0, err
		}
		if hint == 0 {
			continue
		}
		rec, err := s.store.GetAttendance(ctx, en.ID, year, month)
		if err != nil {
			return 0, err
		}
		if rec != nil && rec.Count != 0 {
			continue
		}
		updates = append(updates, CountUpdate{EnrollmentID: en.ID, Count: hint})
	}

	n, err := s.ApplyCounts(ctx, year, month, updates)
	if err != nil {
		return n, err
	}
	s.log.Info("schedule hints applied", "period", p, "changed", n)
	return n, nil
}

// SetLocked flips the lock flag on every matching record and returns how
// many changed. Counts are untouched. Zero-count records are seeded for
// matching enrollments first so the lock also covers enrollments that have
// no persisted record yet.
func (s *Service) SetLocked(ctx context.Context, year, month int, courseID *int64, lock bool) (int, error) {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return 0, err
	}
	if lock {
		ens, err := s.store.ListPerLessonEnrollments(ctx, courseID)
		if err != nil {
			return 0, err
		}
		for _, en := range ens {
			rec, err := s.store.GetAttendance(ctx, en.ID, year, month)
			if err != nil {
				return 0, err
			}
			if rec == nil {
				zero := &billing.AttendanceRecord{EnrollmentID: en.ID, Year: year, Month: month}
				if err := s.store.UpsertAttendance(ctx, zero); err != nil {
					return 0, err
				}
			}
		}
	}
	n, err := s.store.SetAttendanceLocked(ctx, year, month, courseID, lock)
	if err != nil {
		return n, err
	}
	s.log.Info("attendance lock changed", "period", billing.Period{Year: year, Month: month}, "locked", lock, "records", n)
	return n, nil
}

// ListRows returns the denormalized attendance sheet for the period.
func (s *Service) ListRows(ctx context.Context, year, month int, courseID *int64) ([]billing.AttendanceRow, error) {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return nil, err
	}
	return s.store.AttendanceRows(ctx, year, month, courseID)
}
