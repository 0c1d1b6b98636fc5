/*
Package catalog manages the entities a billing run reads from: students,
courses, and enrollments.

PURPOSE:
  Owns lifecycle validation and the referential delete policy. Financial
  records (invoices, payments) reference students by id; the delete rules
  here keep that history from dangling.

DELETE POLICY:
  Student: soft-deactivation is the normal path. Hard delete requires the
           student is already inactive and has no invoices or payments;
           enrollments and attendance cascade.
  Course:  blocked while any enrollment references it.
  Enrollment: deletes cascade to that enrollment's attendance records.

SEE ALSO:
  - billing/errors.go: ValidationError, ReferentialConflictError
*/
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tutora/billing-engine/billing"
)

// Service provides catalog lifecycle operations.
type Service struct {
	store billing.CatalogStore
	log   *slog.Logger
}

// New creates a catalog service.
func New(store billing.CatalogStore, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// =============================================================================
// STUDENTS
// =============================================================================

// CreateStudent validates and persists a new active student.
func (s *Service) CreateStudent(ctx context.Context, fullName, phone, email, note string) (*billing.Student, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, &billing.ValidationError{Field: "fullName", Message: "is required"}
	}

	st := &billing.Student{
		FullName: fullName,
		Phone:    strings.TrimSpace(phone),
		Email:    strings.TrimSpace(email),
		Note:     note,
		IsActive: true,
	}
	if _, err := s.store.CreateStudent(ctx, st); err != nil {
		return nil, err
	}
	s.log.Info("student created", "id", st.ID, "name", st.FullName)
	return st, nil
}

// UpdateStudent rewrites the student's mutable fields, including the
// isActive flag (soft deactivation).
func (s *Service) UpdateStudent(ctx context.Context, id int64, fullName, phone, email, note string, isActive bool) (*billing.Student, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, &billing.ValidationError{Field: "fullName", Message: "is required"}
	}
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	st.FullName = fullName
	st.Phone = strings.TrimSpace(phone)
	st.Email = strings.TrimSpace(email)
	st.Note = note
	st.IsActive = isActive
	if err := s.store.UpdateStudent(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) GetStudent(ctx context.Context, id int64) (*billing.Student, error) {
	return s.store.GetStudent(ctx, id)
}

func (s *Service) ListStudents(ctx context.Context, query string, includeInactive bool) ([]billing.Student, error) {
	return s.store.ListStudents(ctx, strings.TrimSpace(query), includeInactive)
}

// DeleteStudent hard-deletes an inactive student with no financial history.
// Enrollments and attendance cascade; invoices and payments block.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if st.IsActive {
		return &billing.ValidationError{Field: "isActive", Message: "deactivate the student before deleting"}
	}

	hasInvoices, err := s.store.StudentHasInvoices(ctx, id)
	if err != nil {
		return err
	}
	if hasInvoices {
		return &billing.ReferentialConflictError{Entity: "student", ID: id, Blocking: "invoices"}
	}
	hasPayments, err := s.store.StudentHasPayments(ctx, id)
	if err != nil {
		return err
	}
	if hasPayments {
		return &billing.ReferentialConflictError{Entity: "student", ID: id, Blocking: "payments"}
	}

	if err := s.store.DeleteStudentCascade(ctx, id); err != nil {
		return err
	}
	s.log.Info("student deleted", "id", id, "name", st.FullName)
	return nil
}

// =============================================================================
// COURSES
// =============================================================================

// CreateCourse validates and persists a course.
func (s *Service) CreateCourse(ctx context.Context, name string, courseType billing.CourseType,
	lessonPrice, subscriptionPrice decimal.Decimal, scheduleDays []int) (*billing.Course, error) {

	c := &billing.Course{
		Name:              strings.TrimSpace(name),
		Type:              courseType,
		LessonPrice:       billing.Round2(lessonPrice),
		SubscriptionPrice: billing.Round2(subscriptionPrice),
		ScheduleDays:      scheduleDays,
		IsActive:          true,
	}
	if err := validateCourse(c); err != nil {
		return nil, err
	}
	if _, err := s.store.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("course created", "id", c.ID, "name", c.Name, "type", c.Type)
	return c, nil
}

func (s *Service) UpdateCourse(ctx context.Context, id int64, name string, courseType billing.CourseType,
	lessonPrice, subscriptionPrice decimal.Decimal, scheduleDays []int, isActive bool) (*billing.Course, error) {

	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(name)
	c.Type = courseType
	c.LessonPrice = billing.Round2(lessonPrice)
	c.SubscriptionPrice = billing.Round2(subscriptionPrice)
	c.ScheduleDays = scheduleDays
	c.IsActive = isActive
	if err := validateCourse(c); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCourse(ctx context.Context, id int64) (*billing.Course, error) {
	return s.store.GetCourse(ctx, id)
}

func (s *Service) ListCourses(ctx context.Context) ([]billing.Course, error) {
	return s.store.ListCourses(ctx)
}

// DeleteCourse deletes a course only if no enrollment references it.
func (s *Service) DeleteCourse(ctx context.Context, id int64) error {
	if _, err := s.store.GetCourse(ctx, id); err != nil {
		return err
	}
	has, err := s.store.CourseHasEnrollments(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return &billing.ReferentialConflictError{Entity: "course", ID: id, Blocking: "enrollments"}
	}
	return s.store.DeleteCourse(ctx, id)
}

func validateCourse(c *billing.Course) error {
	if c.Name == "" {
		return &billing.ValidationError{Field: "name", Message: "is required"}
	}
	if c.Type != billing.CourseGroup && c.Type != billing.CourseIndividual {
		return &billing.ValidationError{Field: "type", Message: "must be 'group' or 'individual'"}
	}
	if c.LessonPrice.IsNegative() || c.SubscriptionPrice.IsNegative() {
		return &billing.ValidationError{Field: "prices", Message: "must be >= 0"}
	}
	for _, d := range c.ScheduleDays {
		if d < 0 || d > 6 {
			return &billing.ValidationError{Field: "scheduleDays", Message: "weekday indices must be in 0..6"}
		}
	}
	return nil
}

// =============================================================================
// ENROLLMENTS
// =============================================================================

// CreateEnrollment links a student to a course. The discount is clamped to
// [0,100] before persistence, always.
func (s *Service) CreateEnrollment(ctx context.Context, studentID, courseID int64,
	mode billing.BillingMode, discountPct decimal.Decimal, note string) (*billing.Enrollment, error) {

	if mode != billing.BillingSubscription && mode != billing.BillingPerLesson {
		return nil, &billing.ValidationError{Field: "billingMode", Message: "must be 'subscription' or 'per_lesson'"}
	}
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	e := &billing.Enrollment{
		StudentID:   studentID,
		CourseID:    courseID,
		BillingMode: mode,
		DiscountPct: billing.ClampDiscount(discountPct),
		Note:        note,
	}
	if _, err := s.store.CreateEnrollment(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("enrollment created", "id", e.ID, "student", studentID, "course", courseID, "mode", mode)
	return e, nil
}

func (s *Service) UpdateEnrollment(ctx context.Context, id int64,
	mode billing.BillingMode, discountPct decimal.Decimal, note string) (*billing.Enrollment, error) {

	if mode != billing.BillingSubscription && mode != billing.BillingPerLesson {
		return nil, &billing.ValidationError{Field: "billingMode", Message: "must be 'subscription' or 'per_lesson'"}
	}
	e, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	e.BillingMode = mode
	e.DiscountPct = billing.ClampDiscount(discountPct)
	e.Note = note
	if err := s.store.UpdateEnrollment(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEnrollment(ctx context.Context, id int64) (*billing.Enrollment, error) {
	return s.store.GetEnrollment(ctx, id)
}

func (s *Service) ListEnrollmentsForStudent(ctx context.Context, studentID int64) ([]billing.Enrollment, error) {
	return s.store.ListEnrollmentsForStudent(ctx, studentID)
}

// DeleteEnrollment removes the enrollment and its attendance history.
func (s *Service) DeleteEnrollment(ctx context.Context, id int64) error {
	if _, err := s.store.GetEnrollment(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteEnrollmentCascade(ctx, id)
}
