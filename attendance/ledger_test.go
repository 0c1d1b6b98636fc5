package attendance_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutora/billing-engine/attendance"
	"github.com/tutora/billing-engine/billing"
	"github.com/tutora/billing-engine/catalog"
	"github.com/tutora/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	ledger  *attendance.Service
	catalog *catalog.Service
	store   *sqlite.Store
}

func newFixture(t *testing.T) *fixture {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := testLogger()
	return &fixture{
		ledger:  attendance.New(store, log),
		catalog: catalog.New(store, log),
		store:   store,
	}
}

// seedPerLesson creates a student enrolled per-lesson in a group course and
// returns (studentID, courseID, enrollmentID).
func (f *fixture) seedPerLesson(t *testing.T, name string, scheduleDays []int) (int64, int64, int64) {
	ctx := context.Background()

	st, err := f.catalog.CreateStudent(ctx, name, "", "", "")
	require.NoError(t, err)

	c, err := f.catalog.CreateCourse(ctx, "English "+name, billing.CourseGroup,
		decimal.NewFromInt(10), decimal.Zero, scheduleDays)
	require.NoError(t, err)

	en, err := f.catalog.CreateEnrollment(ctx, st.ID, c.ID, billing.BillingPerLesson, decimal.Zero, "")
	require.NoError(t, err)

	return st.ID, c.ID, en.ID
}

// =============================================================================
// LOCK INVARIANT
// =============================================================================

func TestSetCount_LockedPeriod_Rejected(t *testing.T) {
	// GIVEN: An attendance record locked for 2025-09
	// WHEN: Writing a new count for that record
	// THEN: The write fails with ErrLockedPeriod and the count is unchanged

	f := newFixture(t)
	ctx := context.Background()
	_, _, enID := f.seedPerLesson(t, "Anna", nil)

	require.NoError(t, f.ledger.SetCount(ctx, enID, 2025, 9, 4))

	n, err := f.ledger.SetLocked(ctx, 2025, 9, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = f.ledger.SetCount(ctx, enID, 2025, 9, 7)
	assert.ErrorIs(t, err, billing.ErrLockedPeriod)
	var lpe *billing.LockedPeriodError
	assert.ErrorAs(t, err, &lpe)
	assert.Equal(t, enID, lpe.EnrollmentID)

	rec, err := f.store.GetAttendance(ctx, enID, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Count)
}

func TestSetCount_UnlockReenablesWrites(t *testing.T) {
	// GIVEN: A locked period
	// WHEN: Unlocking and writing again
	// THEN: The write succeeds

	f := newFixture(t)
	ctx := context.Background()
	_, _, enID := f.seedPerLesson(t, "Boris", nil)

	require.NoError(t, f.ledger.SetCount(ctx, enID, 2025, 9, 4))
	_, err := f.ledger.SetLocked(ctx, 2025, 9, nil, true)
	require.NoError(t, err)
	_, err = f.ledger.SetLocked(ctx, 2025, 9, nil, false)
	require.NoError(t, err)

	require.NoError(t, f.ledger.SetCount(ctx, enID, 2025, 9, 7))
	rec, err := f.store.GetAttendance(ctx, enID, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 7, rec.Count)
}

func TestSetLocked_CoversUnpersistedEnrollments(t *testing.T) {
	// GIVEN: An enrollment with no attendance record for the period yet
	// WHEN: Locking the period
	// THEN: A zero-count record is seeded and locked, so later writes fail

	f := newFixture(t)
	ctx := context.Background()
	_, _, enID := f.seedPerLesson(t, "Clara", nil)

	n, err := f.ledger.SetLocked(ctx, 2025, 10, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = f.ledger.SetCount(ctx, enID, 2025, 10, 3)
	assert.ErrorIs(t, err, billing.ErrLockedPeriod)
}

func TestApplyCounts_SkipsLockedRows(t *testing.T) {
	// GIVEN: Two enrollments, one locked for the period
	// WHEN: Applying a batch touching both
	// THEN: Only the unlocked row is written; the batch reports 1 applied

	f := newFixture(t)
	ctx := context.Background()
	_, lockedCourse, lockedEn := f.seedPerLesson(t, "Dina", nil)
	_, _, openEn := f.seedPerLesson(t, "Egor", nil)

	_, err := f.ledger.SetLocked(ctx, 2025, 9, &lockedCourse, true)
	require.NoError(t, err)

	applied, err := f.ledger.ApplyCounts(ctx, 2025, 9, []attendance.CountUpdate{
		{EnrollmentID: lockedEn, Count: 5},
		{EnrollmentID: openEn, Count: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	rec, err := f.store.GetAttendance(ctx, lockedEn, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Count)

	rec, err = f.store.GetAttendance(ctx, openEn, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Count)
}

// =============================================================================
// COUNT SEMANTICS
// =============================================================================

func TestSetCount_NegativeClampsToZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, enID := f.seedPerLesson(t, "Fedor", nil)

	require.NoError(t, f.ledger.SetCount(ctx, enID, 2025, 9, -3))
	rec, err := f.store.GetAttendance(ctx, enID, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Count)
}

func TestGetOrInit_MissingRecordIsZeroUnlocked(t *testing.T) {
	// A record that was never written reads as count 0, unlocked, and is
	// not persisted by the read itself.

	f := newFixture(t)
	ctx := context.Background()
	stID, cID, enID := f.seedPerLesson(t, "Galina", nil)

	rec, err := f.ledger.GetOrInit(ctx, stID, cID, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Count)
	assert.False(t, rec.Locked)

	persisted, err := f.store.GetAttendance(ctx, enID, 2025, 9)
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestBulkIncrement_SeedsNewEnrollments(t *testing.T) {
	// GIVEN: One enrollment with an existing count and one with none
	// WHEN: Bulk-incrementing the period
	// THEN: Both end up incremented (3->4, missing->1)

	f := newFixture(t)
	ctx := context.Background()
	_, _, en1 := f.seedPerLesson(t, "Hanna", nil)
	_, _, en2 := f.seedPerLesson(t, "Igor", nil)

	require.NoError(t, f.ledger.SetCount(ctx, en1, 2025, 9, 3))

	applied, err := f.ledger.BulkIncrement(ctx, 2025, 9, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	rec, _ := f.store.GetAttendance(ctx, en1, 2025, 9)
	assert.Equal(t, 4, rec.Count)
	rec, _ = f.store.GetAttendance(ctx, en2, 2025, 9)
	assert.Equal(t, 1, rec.Count)
}

func TestBulkIncrement_CourseFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, course1, en1 := f.seedPerLesson(t, "Jana", nil)
	_, _, en2 := f.seedPerLesson(t, "Kirill", nil)

	applied, err := f.ledger.BulkIncrement(ctx, 2025, 9, &course1)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	rec, _ := f.store.GetAttendance(ctx, en1, 2025, 9)
	assert.Equal(t, 1, rec.Count)
	rec, _ = f.store.GetAttendance(ctx, en2, 2025, 9)
	assert.Nil(t, rec)
}

// =============================================================================
// SCHEDULE HINTS
// =============================================================================

func TestApplyScheduleHints_FillsOnlyZeroRows(t *testing.T) {
	// GIVEN: A Mon+Wed group course; one enrollment already has a count
	// WHEN: Applying schedule hints for September 2025
	// THEN: The zero row gets the 9-day estimate, the nonzero row is kept

	f := newFixture(t)
	ctx := context.Background()
	_, _, enManual := f.seedPerLesson(t, "Lena", []int{1, 3})
	_, _, enFresh := f.seedPerLesson(t, "Marta", []int{1, 3})

	require.NoError(t, f.ledger.SetCount(ctx, enManual, 2025, 9, 2))

	applied, err := f.ledger.ApplyScheduleHints(ctx, 2025, 9, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	rec, _ := f.store.GetAttendance(ctx, enManual, 2025, 9)
	assert.Equal(t, 2, rec.Count, "deliberate entry must not be overwritten")
	rec, _ = f.store.GetAttendance(ctx, enFresh, 2025, 9)
	assert.Equal(t, 9, rec.Count)
}

func TestApplyScheduleHints_NoScheduleNoWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, enID := f.seedPerLesson(t, "Nina", nil)

	applied, err := f.ledger.ApplyScheduleHints(ctx, 2025, 9, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	rec, _ := f.store.GetAttendance(ctx, enID, 2025, 9)
	assert.Nil(t, rec)
}
