package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/logger"
	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
	"github.com/harentsoaR/medibook-api/internal/store/storetest"
)

var testNow = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func setupMonitor() (*Monitor, *storetest.MockStore, *storetest.MockNotifier) {
	st := &storetest.MockStore{}
	notifier := &storetest.MockNotifier{}
	return NewMonitor(st, notifier, logger.Discard(), time.UTC, fixedNow), st, notifier
}

func pastApproved() *models.Appointment {
	return &models.Appointment{
		ID:        primitive.NewObjectID(),
		PatientID: primitive.NewObjectID(),
		DoctorID:  primitive.NewObjectID(),
		Date:      "Jan 01, 2024",
		Time:      "09:00 AM",
		Status:    models.StatusApproved,
	}
}

func TestMonitor_CompletesAndCounts(t *testing.T) {
	m, st, notifier := setupMonitor()
	apt := pastApproved()
	patient := &models.User{ID: apt.PatientID, Phone: "+261340000000"}

	st.On("MarkCompleted", mock.Anything, apt.ID, apt.DoctorID).Return(true, nil)
	st.On("FindUserByID", mock.Anything, apt.PatientID).Return(patient, nil)
	notifier.On("SendAppointmentSMS", patient, mock.MatchedBy(func(a *models.Appointment) bool {
		return a.Status == models.StatusCompleted
	})).Return()

	got, err := m.Reconcile(context.Background(), apt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.True(t, got.PatientCounted)
	assert.Equal(t, models.StatusApproved, apt.Status, "input snapshot is not mutated")
	st.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestMonitor_AlreadyCountedOnlyCompletes(t *testing.T) {
	m, st, notifier := setupMonitor()
	apt := pastApproved()
	apt.PatientCounted = true

	st.On("SetAppointmentStatus", mock.Anything, apt.ID, models.StatusCompleted, []string{models.StatusApproved}).Return(nil)

	got, err := m.Reconcile(context.Background(), apt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	st.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendAppointmentSMS", mock.Anything, mock.Anything)
}

func TestMonitor_RaceLostCountsNothing(t *testing.T) {
	m, st, notifier := setupMonitor()
	apt := pastApproved()

	st.On("MarkCompleted", mock.Anything, apt.ID, apt.DoctorID).Return(false, nil)

	got, err := m.Reconcile(context.Background(), apt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	notifier.AssertNotCalled(t, "SendAppointmentSMS", mock.Anything, mock.Anything)
}

func TestMonitor_NoActionTouchesNothing(t *testing.T) {
	m, st, _ := setupMonitor()

	for _, apt := range []*models.Appointment{
		{Status: models.StatusApproved, Date: "Jan 05, 2024", Time: "09:00 AM"},
		{Status: models.StatusPending, Date: "Jan 01, 2020", Time: "09:00 AM"},
		{Status: models.StatusApproved, Date: "sometime", Time: ""},
	} {
		got, err := m.Reconcile(context.Background(), apt)
		require.NoError(t, err)
		assert.Same(t, apt, got)
	}
	st.AssertExpectations(t)
	assert.Empty(t, st.Calls)
}

func TestMonitor_ConflictReloads(t *testing.T) {
	m, st, _ := setupMonitor()
	apt := pastApproved()
	fresh := *apt
	fresh.Status = models.StatusCancelled

	st.On("MarkCompleted", mock.Anything, apt.ID, apt.DoctorID).Return(false, store.ErrConflict)
	st.On("FindAppointment", mock.Anything, apt.ID).Return(&fresh, nil)

	got, err := m.Reconcile(context.Background(), apt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestMonitor_ReconcileAllKeepsFailures(t *testing.T) {
	m, st, _ := setupMonitor()
	ok := pastApproved()
	ok.PatientCounted = true
	failing := pastApproved()
	future := models.Appointment{Status: models.StatusApproved, Date: "Feb 01, 2024", Time: "09:00 AM"}

	st.On("SetAppointmentStatus", mock.Anything, ok.ID, models.StatusCompleted, []string{models.StatusApproved}).Return(nil)
	st.On("MarkCompleted", mock.Anything, failing.ID, failing.DoctorID).Return(false, errors.New("connection reset"))

	got := m.ReconcileAll(context.Background(), []models.Appointment{*ok, *failing, future})
	require.Len(t, got, 3)
	assert.Equal(t, models.StatusCompleted, got[0].Status)
	assert.Equal(t, models.StatusApproved, got[1].Status)
	assert.Equal(t, models.StatusApproved, got[2].Status)
}

func TestMonitor_ReadsLegacyTimesInConfiguredZone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	st := &storetest.MockStore{}
	// 10:00 UTC is 05:00 in New York, four hours before the visit.
	now := func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) }
	m := NewMonitor(st, &storetest.MockNotifier{}, logger.Discard(), newYork, now)

	apt := &models.Appointment{
		ID:     primitive.NewObjectID(),
		Status: models.StatusApproved,
		Date:   "Jan 01, 2024",
		Time:   "09:00 AM",
	}
	got, err := m.Reconcile(context.Background(), apt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Empty(t, st.Calls)

	// 15:00 UTC is 10:00 in New York, an hour after it.
	later := NewMonitor(st, &storetest.MockNotifier{}, logger.Discard(), newYork, func() time.Time {
		return time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	})
	st.On("MarkCompleted", mock.Anything, apt.ID, apt.DoctorID).Return(false, nil)
	got, err = later.Reconcile(context.Background(), apt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}
