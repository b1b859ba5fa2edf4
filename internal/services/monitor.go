package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/medibook-api/internal/lifecycle"
	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
)

// Monitor completes approved appointments whose time has passed. It runs
// whenever an appointment is loaded. Display strings on older records are
// read as wall-clock time in loc.
type Monitor struct {
	store    store.Store
	notifier Notifier
	log      logrus.FieldLogger
	loc      *time.Location
	now      func() time.Time
}

func NewMonitor(st store.Store, notifier Notifier, log logrus.FieldLogger, loc *time.Location, now func() time.Time) *Monitor {
	return &Monitor{
		store:    st,
		notifier: notifier,
		log:      log.WithField("component", "monitor"),
		loc:      loc,
		now:      now,
	}
}

// Reconcile applies the transition due for apt, if any, and returns the
// appointment as it now stands.
func (m *Monitor) Reconcile(ctx context.Context, apt *models.Appointment) (*models.Appointment, error) {
	action := lifecycle.EvaluateTransition(apt, m.now().In(m.loc))
	if action == lifecycle.NoAction {
		return apt, nil
	}

	entry := m.log.WithFields(logrus.Fields{
		"appointment_id": apt.ID.Hex(),
		"action":         action.String(),
	})

	var err error
	counted := false
	switch action {
	case lifecycle.MarkCompletedAndCount:
		counted, err = m.store.MarkCompleted(ctx, apt.ID, apt.DoctorID)
	case lifecycle.MarkCompletedOnly:
		err = m.store.SetAppointmentStatus(ctx, apt.ID, models.StatusCompleted, models.StatusApproved)
	}

	if errors.Is(err, store.ErrConflict) {
		// Someone else moved it first; report what is stored now.
		entry.Debug("Appointment changed concurrently, reloading")
		fresh, ferr := m.store.FindAppointment(ctx, apt.ID)
		if ferr != nil {
			return nil, fmt.Errorf("reload appointment: %w", ferr)
		}
		return fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete appointment %s: %w", apt.ID.Hex(), err)
	}

	updated := *apt
	updated.Status = models.StatusCompleted
	updated.PatientCounted = true
	entry.WithField("counted", counted).Info("Appointment completed")

	if counted && m.notifier != nil {
		if patient, err := m.store.FindUserByID(ctx, apt.PatientID); err == nil {
			m.notifier.SendAppointmentSMS(patient, &updated)
		}
	}
	return &updated, nil
}

// ReconcileAll runs Reconcile over a listing. A failure on one appointment is
// logged and that appointment is returned unchanged.
func (m *Monitor) ReconcileAll(ctx context.Context, appointments []models.Appointment) []models.Appointment {
	for i := range appointments {
		updated, err := m.Reconcile(ctx, &appointments[i])
		if err != nil {
			m.log.WithError(err).WithField("appointment_id", appointments[i].ID.Hex()).Warn("Status reconcile failed")
			continue
		}
		appointments[i] = *updated
	}
	return appointments
}
