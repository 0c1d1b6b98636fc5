package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutora/billing-engine/api"
	"github.com/tutora/billing-engine/attendance"
	"github.com/tutora/billing-engine/billing"
	"github.com/tutora/billing-engine/catalog"
	"github.com/tutora/billing-engine/invoicing"
	"github.com/tutora/billing-engine/payments"
	"github.com/tutora/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, inv *billing.Invoice, st *billing.Student) (string, error) {
	return fmt.Sprintf("/out/%s.pdf", *inv.Number), nil
}

func newTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := api.NewHandler(
		catalog.New(store, log),
		attendance.New(store, log),
		invoicing.New(store, fakeRenderer{}, "LS", log),
		payments.New(store, log),
		"/out",
	)
	return api.NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

// =============================================================================
// STUDENT ENDPOINTS
// =============================================================================

func TestStudents_CRUDRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/students", map[string]any{
		"fullName": "Anna Berzina", "phone": "+371 200", "email": "anna@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[billing.Student](t, rec)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	rec = doJSON(t, router, "GET", fmt.Sprintf("/api/students/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[billing.Student](t, rec)
	assert.Equal(t, "Anna Berzina", got.FullName)

	rec = doJSON(t, router, "PUT", fmt.Sprintf("/api/students/%d", created.ID), map[string]any{
		"fullName": "Anna Berzina", "isActive": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Inactive students disappear from the default listing.
	rec = doJSON(t, router, "GET", "/api/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]billing.Student](t, rec))

	rec = doJSON(t, router, "GET", "/api/students?includeInactive=true", nil)
	assert.Len(t, decode[[]billing.Student](t, rec), 1)

	rec = doJSON(t, router, "DELETE", fmt.Sprintf("/api/students/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestStudents_ValidationAndNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/students", map[string]any{"fullName": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "GET", "/api/students/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudents_DeleteActiveConflicts(t *testing.T) {
	// Deleting an active student is rejected before any guard queries run.
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/students", map[string]any{"fullName": "Boris"})
	created := decode[billing.Student](t, rec)

	rec = doJSON(t, router, "DELETE", fmt.Sprintf("/api/students/%d", created.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// FULL BILLING FLOW OVER HTTP
// =============================================================================

func TestBillingFlow_EndToEnd(t *testing.T) {
	// GIVEN: A per-lesson enrollment with 4 lessons in 2025-09
	// WHEN: Driving generate -> issue -> pay entirely over the API
	// THEN: Every step returns the figures the services promise

	router := newTestRouter(t)

	st := decode[billing.Student](t, doJSON(t, router, "POST", "/api/students",
		map[string]any{"fullName": "Clara"}))
	course := decode[billing.Course](t, doJSON(t, router, "POST", "/api/courses",
		map[string]any{"name": "English B2", "type": "group", "lessonPrice": "10"}))
	en := decode[billing.Enrollment](t, doJSON(t, router, "POST", "/api/enrollments",
		map[string]any{"studentId": st.ID, "courseId": course.ID, "billingMode": "per_lesson"}))

	rec := doJSON(t, router, "PUT", "/api/attendance/counts", map[string]any{
		"year": 2025, "month": 9,
		"updates": []map[string]any{{"enrollmentId": en.ID, "count": 4}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, "POST", "/api/invoices/generate", map[string]any{"year": 2025, "month": 9})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gen := decode[invoicing.GenerateResult](t, rec)
	assert.Equal(t, 1, gen.Created)

	items := decode[[]billing.InvoiceListItem](t, doJSON(t, router, "GET", "/api/invoices?year=2025&month=9", nil))
	require.Len(t, items, 1)
	invoiceID := items[0].ID
	assert.True(t, decimal.NewFromInt(40).Equal(items[0].Total), "total %s", items[0].Total)

	rec = doJSON(t, router, "POST", fmt.Sprintf("/api/invoices/%d/issue", invoiceID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := decode[invoicing.IssueResult](t, rec)
	assert.Equal(t, "LS-2025-0001", issued.Number)

	rec = doJSON(t, router, "POST", "/api/payments", map[string]any{
		"studentId": st.ID, "invoiceId": invoiceID, "amount": "25", "method": "bank",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	sum := decode[payments.InvoiceSummary](t, doJSON(t, router, "GET",
		fmt.Sprintf("/api/invoices/%d/summary", invoiceID), nil))
	assert.True(t, decimal.NewFromInt(15).Equal(sum.Remaining), "remaining %s", sum.Remaining)
	assert.Equal(t, billing.StatusIssued, sum.Status)

	debtors := decode[[]payments.Debtor](t, doJSON(t, router, "GET", "/api/debtors", nil))
	require.Len(t, debtors, 1)
	assert.True(t, decimal.NewFromInt(15).Equal(debtors[0].Debt))
}

func TestIssue_ConflictOnSecondAttempt(t *testing.T) {
	router := newTestRouter(t)

	st := decode[billing.Student](t, doJSON(t, router, "POST", "/api/students",
		map[string]any{"fullName": "Dina"}))
	course := decode[billing.Course](t, doJSON(t, router, "POST", "/api/courses",
		map[string]any{"name": "German A1", "type": "group", "subscriptionPrice": "50"}))
	doJSON(t, router, "POST", "/api/enrollments",
		map[string]any{"studentId": st.ID, "courseId": course.ID, "billingMode": "subscription"})

	doJSON(t, router, "POST", "/api/invoices/generate", map[string]any{"year": 2025, "month": 9})
	items := decode[[]billing.InvoiceListItem](t, doJSON(t, router, "GET", "/api/invoices?year=2025&month=9", nil))
	require.Len(t, items, 1)

	rec := doJSON(t, router, "POST", fmt.Sprintf("/api/invoices/%d/issue", items[0].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "POST", fmt.Sprintf("/api/invoices/%d/issue", items[0].ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAttendanceLock_ConflictOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	st := decode[billing.Student](t, doJSON(t, router, "POST", "/api/students",
		map[string]any{"fullName": "Egor"}))
	course := decode[billing.Course](t, doJSON(t, router, "POST", "/api/courses",
		map[string]any{"name": "French A2", "type": "group", "lessonPrice": "12"}))
	en := decode[billing.Enrollment](t, doJSON(t, router, "POST", "/api/enrollments",
		map[string]any{"studentId": st.ID, "courseId": course.ID, "billingMode": "per_lesson"}))

	rec := doJSON(t, router, "POST", "/api/attendance/lock", map[string]any{
		"year": 2025, "month": 9, "locked": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Locked rows are silently skipped by the batch entry point.
	rec = doJSON(t, router, "PUT", "/api/attendance/counts", map[string]any{
		"year": 2025, "month": 9,
		"updates": []map[string]any{{"enrollmentId": en.ID, "count": 4}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	applied := decode[api.CountResponse](t, rec)
	assert.Equal(t, 0, applied.Applied)

	rows := decode[[]billing.AttendanceRow](t, doJSON(t, router, "GET", "/api/attendance?year=2025&month=9", nil))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Locked)
	assert.Equal(t, 0, rows[0].Count)
}
