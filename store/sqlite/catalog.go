package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tutora/billing-engine/billing"
)

// =============================================================================
// STUDENTS (billing.CatalogStore)
// =============================================================================

// CreateStudent inserts a student and returns the assigned id.
func (s *Store) CreateStudent(ctx context.Context, st *billing.Student) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO students (full_name, phone, email, note, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.FullName, st.Phone, st.Email, st.Note, st.IsActive, now.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	st.ID = id
	st.CreatedAt = now
	return id, nil
}

// UpdateStudent rewrites all mutable student fields.
func (s *Store) UpdateStudent(ctx context.Context, st *billing.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET full_name = ?, phone = ?, email = ?, note = ?, is_active = ?
		WHERE id = ?`,
		st.FullName, st.Phone, st.Email, st.Note, st.IsActive, st.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return requireRow(res)
}

// GetStudent returns the student or billing.ErrNotFound.
func (s *Store) GetStudent(ctx context.Context, id int64) (*billing.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone, email, note, is_active, created_at
		FROM students WHERE id = ?`, id)
	return scanStudent(row)
}

// ListStudents filters by a free-text query over name/phone/email.
func (s *Store) ListStudents(ctx context.Context, query string, includeInactive bool) ([]billing.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT id, full_name, phone, email, note, is_active, created_at
		FROM students WHERE 1=1`
	args := []any{}
	if !includeInactive {
		q += ` AND is_active = TRUE`
	}
	if query != "" {
		q += ` AND (full_name LIKE ? COLLATE NOCASE OR phone LIKE ? OR email LIKE ? COLLATE NOCASE)`
		like := "%" + query + "%"
		args = append(args, like, like, like)
	}
	q += ` ORDER BY full_name ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []billing.Student
	for rows.Next() {
		st, err := scanStudentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// DeleteStudentCascade removes the student with their enrollments and
// attendance in one transaction. Referential guards (invoices, payments)
// belong to the catalog service, not here.
func (s *Store) DeleteStudentCascade(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM attendance WHERE enrollment_id IN
		(SELECT id FROM enrollments WHERE student_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) StudentHasInvoices(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM invoices WHERE student_id = ?`, id)
}

func (s *Store) StudentHasPayments(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM payments WHERE student_id = ?`, id)
}

// =============================================================================
// COURSES
// =============================================================================

func (s *Store) CreateCourse(ctx context.Context, c *billing.Course) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (name, course_type, lesson_price, subscription_price, schedule_days, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Type, c.LessonPrice.String(), c.SubscriptionPrice.String(),
		encodeScheduleDays(c.ScheduleDays), c.IsActive, now.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create course: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = id
	c.CreatedAt = now
	return id, nil
}

func (s *Store) UpdateCourse(ctx context.Context, c *billing.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE courses SET name = ?, course_type = ?, lesson_price = ?,
			subscription_price = ?, schedule_days = ?, is_active = ?
		WHERE id = ?`,
		c.Name, c.Type, c.LessonPrice.String(), c.SubscriptionPrice.String(),
		encodeScheduleDays(c.ScheduleDays), c.IsActive, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetCourse(ctx context.Context, id int64) (*billing.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, course_type, lesson_price, subscription_price, schedule_days, is_active, created_at
		FROM courses WHERE id = ?`, id)
	return scanCourse(row)
}

func (s *Store) ListCourses(ctx context.Context) ([]billing.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, course_type, lesson_price, subscription_price, schedule_days, is_active, created_at
		FROM courses ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var out []billing.Course
	for rows.Next() {
		c, err := scanCourseRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) CourseHasEnrollments(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM enrollments WHERE course_id = ?`, id)
}

// =============================================================================
// ENROLLMENTS
// =============================================================================

func (s *Store) CreateEnrollment(ctx context.Context, e *billing.Enrollment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (student_id, course_id, billing_mode, discount_pct, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.StudentID, e.CourseID, e.BillingMode, e.DiscountPct.String(), e.Note, now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, &billing.ValidationError{Field: "courseId", Message: "student is already enrolled in this course"}
		}
		return 0, fmt.Errorf("failed to create enrollment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	e.CreatedAt = now
	return id, nil
}

func (s *Store) UpdateEnrollment(ctx context.Context, e *billing.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE enrollments SET billing_mode = ?, discount_pct = ?, note = ?
		WHERE id = ?`,
		e.BillingMode, e.DiscountPct.String(), e.Note, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetEnrollment(ctx context.Context, id int64) (*billing.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, course_id, billing_mode, discount_pct, note, created_at
		FROM enrollments WHERE id = ?`, id)
	return scanEnrollment(row)
}

// FindEnrollment looks up the enrollment for a (student, course) pair.
func (s *Store) FindEnrollment(ctx context.Context, studentID, courseID int64) (*billing.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, course_id, billing_mode, discount_pct, note, created_at
		FROM enrollments WHERE student_id = ? AND course_id = ?`, studentID, courseID)
	return scanEnrollment(row)
}

func (s *Store) ListEnrollmentsForStudent(ctx context.Context, studentID int64) ([]billing.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, course_id, billing_mode, discount_pct, note, created_at
		FROM enrollments WHERE student_id = ? ORDER BY id ASC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()
	return collectEnrollments(rows)
}

// ListPerLessonEnrollments returns per-lesson enrollments whose student and
// course are both active, optionally filtered to one course.
func (s *Store) ListPerLessonEnrollments(ctx context.Context, courseID *int64) ([]billing.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT e.id, e.student_id, e.course_id, e.billing_mode, e.discount_pct, e.note, e.created_at
		FROM enrollments e
		JOIN students st ON st.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		WHERE e.billing_mode = ? AND st.is_active = TRUE AND c.is_active = TRUE`
	args := []any{billing.BillingPerLesson}
	if courseID != nil {
		q += ` AND e.course_id = ?`
		args = append(args, *courseID)
	}
	q += ` ORDER BY e.id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list per-lesson enrollments: %w", err)
	}
	defer rows.Close()
	return collectEnrollments(rows)
}

// DeleteEnrollmentCascade removes the enrollment and its attendance history.
func (s *Store) DeleteEnrollmentCascade(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE enrollment_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudentFrom(sc rowScanner) (*billing.Student, error) {
	var (
		st        billing.Student
		createdAt string
	)
	if err := sc.Scan(&st.ID, &st.FullName, &st.Phone, &st.Email, &st.Note, &st.IsActive, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &st, nil
}

func scanStudent(row *sql.Row) (*billing.Student, error)      { return scanStudentFrom(row) }
func scanStudentRows(rows *sql.Rows) (*billing.Student, error) { return scanStudentFrom(rows) }

func scanCourseFrom(sc rowScanner) (*billing.Course, error) {
	var (
		c            billing.Course
		lessonPrice  string
		subPrice     string
		scheduleDays string
		createdAt    string
	)
	if err := sc.Scan(&c.ID, &c.Name, &c.Type, &lessonPrice, &subPrice, &scheduleDays, &c.IsActive, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}
	c.LessonPrice = parseDecimal(lessonPrice)
	c.SubscriptionPrice = parseDecimal(subPrice)
	c.ScheduleDays = decodeScheduleDays(scheduleDays)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func scanCourse(row *sql.Row) (*billing.Course, error)      { return scanCourseFrom(row) }
func scanCourseRows(rows *sql.Rows) (*billing.Course, error) { return scanCourseFrom(rows) }

func scanEnrollment(sc rowScanner) (*billing.Enrollment, error) {
	var (
		e           billing.Enrollment
		discountPct string
		createdAt   string
	)
	if err := sc.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.BillingMode, &discountPct, &e.Note, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}
	e.DiscountPct = parseDecimal(discountPct)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func collectEnrollments(rows *sql.Rows) ([]billing.Enrollment, error) {
	var out []billing.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrNotFound
	}
	return nil
}
