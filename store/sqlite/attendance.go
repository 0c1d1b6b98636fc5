package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tutora/billing-engine/billing"
)

// =============================================================================
// ATTENDANCE (billing.AttendanceStore)
// =============================================================================

// GetAttendance returns the record for (enrollmentID, year, month), or nil
// when none has been persisted yet.
func (s *Store) GetAttendance(ctx context.Context, enrollmentID int64, year, month int) (*billing.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, enrollment_id, year, month, lessons_count, locked
		FROM attendance WHERE enrollment_id = ? AND year = ? AND month = ?`,
		enrollmentID, year, month)

	var rec billing.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.EnrollmentID, &rec.Year, &rec.Month, &rec.Count, &rec.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan attendance record: %w", err)
	}
	return &rec, nil
}

// UpsertAttendance creates or replaces the record for its composite key.
func (s *Store) UpsertAttendance(ctx context.Context, rec *billing.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (enrollment_id, year, month, lessons_count, locked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(enrollment_id, year, month) DO UPDATE SET
			lessons_count = excluded.lessons_count,
			locked = excluded.locked`,
		rec.EnrollmentID, rec.Year, rec.Month, rec.Count, rec.Locked,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance record: %w", err)
	}
	return nil
}

// ListAttendanceForPeriod returns all persisted records for the period,
// optionally restricted to one course's enrollments.
func (s *Store) ListAttendanceForPeriod(ctx context.Context, year, month int, courseID *int64) ([]billing.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT a.id, a.enrollment_id, a.year, a.month, a.lessons_count, a.locked
		FROM attendance a`
	args := []any{}
	if courseID != nil {
		q += ` JOIN enrollments e ON e.id = a.enrollment_id
		WHERE a.year = ? AND a.month = ? AND e.course_id = ?`
		args = append(args, year, month, *courseID)
	} else {
		q += ` WHERE a.year = ? AND a.month = ?`
		args = append(args, year, month)
	}
	q += ` ORDER BY a.enrollment_id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var out []billing.AttendanceRecord
	for rows.Next() {
		var rec billing.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.EnrollmentID, &rec.Year, &rec.Month, &rec.Count, &rec.Locked); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetAttendanceLocked flips the lock flag on every matching record in one
// statement. Counts are untouched.
func (s *Store) SetAttendanceLocked(ctx context.Context, year, month int, courseID *int64, locked bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := `UPDATE attendance SET locked = ? WHERE year = ? AND month = ? AND locked != ?`
	args := []any{locked, year, month, locked}
	if courseID != nil {
		q += ` AND enrollment_id IN (SELECT id FROM enrollments WHERE course_id = ?)`
		args = append(args, *courseID)
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to set attendance lock: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// AttendanceRows is the denormalized projection for the attendance sheet:
// every per-lesson enrollment with active student and course, its count for
// the period (0 when no record exists yet), and the lock flag.
func (s *Store) AttendanceRows(ctx context.Context, year, month int, courseID *int64) ([]billing.AttendanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT e.id, st.id, st.full_name, c.id, c.name, c.course_type, c.lesson_price,
		       COALESCE(a.lessons_count, 0), COALESCE(a.locked, FALSE)
		FROM enrollments e
		JOIN students st ON st.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		LEFT JOIN attendance a ON a.enrollment_id = e.id AND a.year = ? AND a.month = ?
		WHERE e.billing_mode = ? AND st.is_active = TRUE AND c.is_active = TRUE`
	args := []any{year, month, billing.BillingPerLesson}
	if courseID != nil {
		q += ` AND c.id = ?`
		args = append(args, *courseID)
	}
	q += ` ORDER BY c.name ASC, st.full_name ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance rows: %w", err)
	}
	defer rows.Close()

	var out []billing.AttendanceRow
	for rows.Next() {
		var (
			r           billing.AttendanceRow
			lessonPrice string
		)
		if err := rows.Scan(&r.EnrollmentID, &r.StudentID, &r.StudentName,
			&r.CourseID, &r.CourseName, &r.CourseType, &lessonPrice, &r.Count, &r.Locked); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row: %w", err)
		}
		r.LessonPrice = parseDecimal(lessonPrice)
		out = append(out, r)
	}
	return out, rows.Err()
}
