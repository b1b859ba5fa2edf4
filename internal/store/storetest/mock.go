// Package storetest provides a testify mock of store.Store.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
)

type MockStore struct {
	mock.Mock
}

var _ store.Store = (*MockStore)(nil)

func (m *MockStore) CreateUser(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockStore) UpdateUser(ctx context.Context, id primitive.ObjectID, upd store.UserUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *MockStore) ListDoctors(ctx context.Context, f store.DoctorFilter) ([]models.User, error) {
	args := m.Called(ctx, f)
	doctors, _ := args.Get(0).([]models.User)
	return doctors, args.Error(1)
}

func (m *MockStore) SetDoctorSchedule(ctx context.Context, doctorID primitive.ObjectID, schedule models.WeeklySchedule, slotMinutes int) error {
	args := m.Called(ctx, doctorID, schedule, slotMinutes)
	return args.Error(0)
}

func (m *MockStore) SetDoctorVerified(ctx context.Context, doctorID primitive.ObjectID) error {
	args := m.Called(ctx, doctorID)
	return args.Error(0)
}

func (m *MockStore) AddDoctorRating(ctx context.Context, doctorID primitive.ObjectID, stars int) error {
	args := m.Called(ctx, doctorID, stars)
	return args.Error(0)
}

func (m *MockStore) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	args := m.Called(ctx, apt)
	return args.Error(0)
}

func (m *MockStore) FindAppointment(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	apt, _ := args.Get(0).(*models.Appointment)
	return apt, args.Error(1)
}

func (m *MockStore) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]models.Appointment, error) {
	args := m.Called(ctx, f)
	apts, _ := args.Get(0).([]models.Appointment)
	return apts, args.Error(1)
}

func (m *MockStore) BookedTimes(ctx context.Context, doctorID primitive.ObjectID, day time.Time) ([]string, error) {
	args := m.Called(ctx, doctorID, day)
	times, _ := args.Get(0).([]string)
	return times, args.Error(1)
}

func (m *MockStore) ReserveSlot(ctx context.Context, doctorID primitive.ObjectID, startsAt time.Time, appointmentID primitive.ObjectID) error {
	args := m.Called(ctx, doctorID, startsAt, appointmentID)
	return args.Error(0)
}

func (m *MockStore) ReleaseSlot(ctx context.Context, appointmentID primitive.ObjectID) error {
	args := m.Called(ctx, appointmentID)
	return args.Error(0)
}

func (m *MockStore) SetAppointmentStatus(ctx context.Context, id primitive.ObjectID, status string, from ...string) error {
	args := m.Called(ctx, id, status, from)
	return args.Error(0)
}

func (m *MockStore) MarkCompleted(ctx context.Context, id, doctorID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id, doctorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) MarkRated(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) AddMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) ListMessages(ctx context.Context, appointmentID primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, appointmentID)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}

// MockNotifier records SMS requests instead of sending them.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendAppointmentSMS(patient *models.User, apt *models.Appointment) {
	m.Called(patient, apt)
}
