package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutora/billing-engine/billing"
)

// =============================================================================
// SCHEDULE HINT ESTIMATOR
// =============================================================================

func TestEstimateLessons_GroupCourseWithSchedule(t *testing.T) {
	// GIVEN: A per-lesson enrollment in a group course meeting Mon+Wed
	// WHEN: Estimating for September 2025 (5 Mondays, 4 Wednesdays)
	// THEN: The hint is 9

	en := billing.Enrollment{BillingMode: billing.BillingPerLesson}
	c := billing.Course{Type: billing.CourseGroup, ScheduleDays: []int{1, 3}}
	p, err := billing.NewPeriod(2025, 9)
	require.NoError(t, err)

	got, err := billing.EstimateLessons(en, c, p)
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestEstimateLessons_IndividualCourse_NoOpinion(t *testing.T) {
	// Individual instruction has no shared weekly schedule.
	en := billing.Enrollment{BillingMode: billing.BillingPerLesson}
	c := billing.Course{Type: billing.CourseIndividual, ScheduleDays: []int{1, 3}}
	p, _ := billing.NewPeriod(2025, 9)

	got, err := billing.EstimateLessons(en, c, p)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestEstimateLessons_SubscriptionMode_NoOpinion(t *testing.T) {
	en := billing.Enrollment{BillingMode: billing.BillingSubscription}
	c := billing.Course{Type: billing.CourseGroup, ScheduleDays: []int{1}}
	p, _ := billing.NewPeriod(2025, 9)

	got, err := billing.EstimateLessons(en, c, p)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestEstimateLessons_EmptySchedule_NoOpinion(t *testing.T) {
	en := billing.Enrollment{BillingMode: billing.BillingPerLesson}
	c := billing.Course{Type: billing.CourseGroup}
	p, _ := billing.NewPeriod(2025, 9)

	got, err := billing.EstimateLessons(en, c, p)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestEstimateLessons_InvalidPeriod(t *testing.T) {
	en := billing.Enrollment{BillingMode: billing.BillingPerLesson}
	c := billing.Course{Type: billing.CourseGroup, ScheduleDays: []int{1}}

	_, err := billing.EstimateLessons(en, c, billing.Period{Year: 2025, Month: 13})
	assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
}
