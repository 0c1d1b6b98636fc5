package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutora/billing-engine/billing"
	"github.com/tutora/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedStudent(t *testing.T, store *sqlite.Store, name string) int64 {
	id, err := store.CreateStudent(context.Background(), &billing.Student{
		FullName: name, IsActive: true,
	})
	require.NoError(t, err)
	return id
}

func seedDraft(t *testing.T, store *sqlite.Store, studentID int64, year, month int) int64 {
	id, err := store.CreateInvoice(context.Background(), &billing.Invoice{
		StudentID: studentID, Year: year, Month: month,
		Status: billing.StatusDraft, Total: decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	return id
}

// =============================================================================
// ISSUANCE NUMBERING
// =============================================================================

func TestIssueInvoice_PerYearSequences(t *testing.T) {
	// GIVEN: Drafts in two different years
	// WHEN: Issuing them interleaved
	// THEN: Each year keeps its own sequence starting at 1

	store := newTestStore(t)
	ctx := context.Background()
	stID := seedStudent(t, store, "Anna")

	inv2025a := seedDraft(t, store, stID, 2025, 9)
	inv2026 := seedDraft(t, store, stID, 2026, 1)
	inv2025b := seedDraft(t, store, stID, 2025, 10)

	n, err := store.IssueInvoice(ctx, inv2025a, "LS")
	require.NoError(t, err)
	assert.Equal(t, "LS-2025-0001", n)

	n, err = store.IssueInvoice(ctx, inv2026, "LS")
	require.NoError(t, err)
	assert.Equal(t, "LS-2026-0001", n)

	n, err = store.IssueInvoice(ctx, inv2025b, "LS")
	require.NoError(t, err)
	assert.Equal(t, "LS-2025-0002", n)
}

func TestIssueInvoice_NotDraftConsumesNoNumber(t *testing.T) {
	// GIVEN: An already issued invoice
	// WHEN: Issuing it again, then issuing a fresh draft
	// THEN: The failed attempt left no gap in the sequence

	store := newTestStore(t)
	ctx := context.Background()
	stID := seedStudent(t, store, "Boris")

	first := seedDraft(t, store, stID, 2025, 9)
	_, err := store.IssueInvoice(ctx, first, "LS")
	require.NoError(t, err)

	_, err = store.IssueInvoice(ctx, first, "LS")
	assert.ErrorIs(t, err, billing.ErrNotDraft)

	second := seedDraft(t, store, stID, 2025, 10)
	n, err := store.IssueInvoice(ctx, second, "LS")
	require.NoError(t, err)
	assert.Equal(t, "LS-2025-0002", n, "failed attempt must not burn a number")
}

func TestIssueInvoice_UnknownID(t *testing.T) {
	store := newTestStore(t)
	_, err := store.IssueInvoice(context.Background(), 999, "LS")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

// =============================================================================
// THE (STUDENT, PERIOD) SLOT
// =============================================================================

func TestCreateInvoice_SlotTaken(t *testing.T) {
	// At most one non-canceled invoice may occupy a student's period slot.

	store := newTestStore(t)
	ctx := context.Background()
	stID := seedStudent(t, store, "Clara")
	seedDraft(t, store, stID, 2025, 9)

	_, err := store.CreateInvoice(ctx, &billing.Invoice{
		StudentID: stID, Year: 2025, Month: 9,
		Status: billing.StatusDraft, Total: decimal.NewFromInt(10),
	})
	assert.Error(t, err)
}

func TestFindInvoiceForPeriod_FreeSlotIsNil(t *testing.T) {
	store := newTestStore(t)
	stID := seedStudent(t, store, "Dina")

	inv, err := store.FindInvoiceForPeriod(context.Background(), stID, 2025, 9)
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestFindInvoiceForPeriod_PrefersActiveOverCanceled(t *testing.T) {
	// A canceled invoice is returned only when nothing else occupies the
	// slot. (The canceled row frees the unique index but still blocks
	// regeneration at the service layer.)

	store := newTestStore(t)
	ctx := context.Background()
	stID := seedStudent(t, store, "Egor")

	canceled := seedDraft(t, store, stID, 2025, 9)
	require.NoError(t, store.UpdateInvoiceStatus(ctx, canceled, billing.StatusCanceled))

	found, err := store.FindInvoiceForPeriod(ctx, stID, 2025, 9)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, billing.StatusCanceled, found.Status)

	active := seedDraft(t, store, stID, 2025, 9)
	found, err = store.FindInvoiceForPeriod(ctx, stID, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, active, found.ID)
}

// =============================================================================
// DECIMAL PERSISTENCE
// =============================================================================

func TestInvoiceLines_DecimalRoundTrip(t *testing.T) {
	// Money is stored as decimal strings; reading back must not lose
	// precision or pick up float artifacts.

	store := newTestStore(t)
	ctx := context.Background()
	stID := seedStudent(t, store, "Fedor")

	unit := decimal.RequireFromString("9.99")
	amount := decimal.RequireFromString("28.47")
	id, err := store.CreateInvoice(ctx, &billing.Invoice{
		StudentID: stID, Year: 2025, Month: 9, Status: billing.StatusDraft,
		Total: amount,
		Lines: []billing.InvoiceLine{
			{EnrollmentID: 0, Description: "Lessons 2025-09", Qty: 3, UnitPrice: unit, Amount: amount},
		},
	})
	require.NoError(t, err)

	got, err := store.GetInvoice(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, unit.Equal(got.Lines[0].UnitPrice), "unit %s", got.Lines[0].UnitPrice)
	assert.True(t, amount.Equal(got.Total), "total %s", got.Total)
}
