// Package store persists users, appointments and chat messages in MongoDB.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrConflict is returned when a guarded update finds the document in an
	// unexpected state.
	ErrConflict = errors.New("document changed concurrently")
)

const (
	usersCollection        = "users"
	appointmentsCollection = "appointments"
	messagesCollection     = "messages"
	reservationsCollection = "slot_reservations"
)

// UserUpdate sets the non-nil fields. PasswordHash is never bound from a
// request body.
type UserUpdate struct {
	FullName     *string
	Phone        *string
	PushToken    *string
	PasswordHash *string
}

func (u UserUpdate) Empty() bool {
	return u.FullName == nil && u.Phone == nil && u.PushToken == nil && u.PasswordHash == nil
}

type DoctorFilter struct {
	Specialty string
	Verified  *bool
}

type AppointmentFilter struct {
	PatientID *primitive.ObjectID
	DoctorID  *primitive.ObjectID
	Status    string
}

// Store is everything the API needs from the database.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, upd UserUpdate) error

	ListDoctors(ctx context.Context, f DoctorFilter) ([]models.User, error)
	SetDoctorSchedule(ctx context.Context, doctorID primitive.ObjectID, schedule models.WeeklySchedule, slotMinutes int) error
	SetDoctorVerified(ctx context.Context, doctorID primitive.ObjectID) error
	AddDoctorRating(ctx context.Context, doctorID primitive.ObjectID, stars int) error

	CreateAppointment(ctx context.Context, apt *models.Appointment) error
	FindAppointment(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error)
	// BookedTimes lists the slot times taken on day (a midnight in the
	// booking location) by appointments that still hold their slot. Records
	// are matched on scheduledAt or on any stored spelling of the date.
	BookedTimes(ctx context.Context, doctorID primitive.ObjectID, day time.Time) ([]string, error)
	// ReserveSlot claims the doctor's slot starting at startsAt for an
	// appointment; ErrDuplicate when another live appointment holds it.
	ReserveSlot(ctx context.Context, doctorID primitive.ObjectID, startsAt time.Time, appointmentID primitive.ObjectID) error
	// ReleaseSlot frees the slot held by an appointment. Releasing a slot
	// that was never reserved is not an error.
	ReleaseSlot(ctx context.Context, appointmentID primitive.ObjectID) error
	// SetAppointmentStatus moves an appointment to status only if its current
	// status is one of from; otherwise ErrConflict.
	SetAppointmentStatus(ctx context.Context, id primitive.ObjectID, status string, from ...string) error
	// MarkCompleted completes an approved appointment. The patient-counted
	// flag is flipped in the same conditional write that decides whether the
	// doctor's counter is incremented, so a patient is counted at most once
	// however many callers race. counted reports whether this call did it.
	MarkCompleted(ctx context.Context, id, doctorID primitive.ObjectID) (counted bool, err error)
	// MarkRated sets ratingGiven on a completed appointment; ErrConflict if it
	// was already set.
	MarkRated(ctx context.Context, id primitive.ObjectID) error

	AddMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, appointmentID primitive.ObjectID) ([]models.Message, error)
}
