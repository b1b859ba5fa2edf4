package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/availability"
	"github.com/harentsoaR/medibook-api/internal/lifecycle"
	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
)

var (
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrDateInPast         = errors.New("date is in the past")
	ErrDoctorNotFound     = errors.New("doctor not found")
	ErrDoctorUnverified   = errors.New("doctor is not verified yet")
	ErrSlotUnavailable    = errors.New("slot is not available")
	ErrNotBookableByRole  = errors.New("only patients can book appointments")
	ErrRatingNotExpected  = errors.New("appointment cannot be rated")
	ErrInvalidRating      = errors.New("stars must be between 1 and 5")
	ErrInvalidSlotMinutes = errors.New("slot minutes must be between 5 and 240")
)

const dateLayout = "2006-01-02"

// DaySlots is a doctor's bookable day.
type DaySlots struct {
	DoctorID      primitive.ObjectID   `json:"doctorId"`
	Date          string               `json:"date"`
	DisplayDate   string               `json:"displayDate"`
	Available     bool                 `json:"available"`
	SlotMinutes   int                  `json:"slotMinutes"`
	Buckets       availability.Buckets `json:"slots"`
	FirstBookable *availability.Slot   `json:"firstBookable"`
}

type Booking struct {
	store       store.Store
	notifier    Notifier
	log         logrus.FieldLogger
	slotMinutes int
	loc         *time.Location
	now         func() time.Time
}

func NewBooking(st store.Store, notifier Notifier, log logrus.FieldLogger, slotMinutes int, loc *time.Location, now func() time.Time) *Booking {
	return &Booking{
		store:       st,
		notifier:    notifier,
		log:         log.WithField("component", "booking"),
		slotMinutes: slotMinutes,
		loc:         loc,
		now:         now,
	}
}

// ParseDate reads a YYYY-MM-DD calendar date in the booking location.
func (b *Booking) ParseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), b.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func (b *Booking) findDoctor(ctx context.Context, doctorID primitive.ObjectID) (*models.User, error) {
	doctor, err := b.store.FindUserByID(ctx, doctorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	if doctor.Role != models.RoleDoctor {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

func (b *Booking) durationFor(doctor *models.User) int {
	if doctor.SlotMinutes > 0 {
		return doctor.SlotMinutes
	}
	return b.slotMinutes
}

// DaySlots lists a doctor's slots for date with taken ones flagged.
func (b *Booking) DaySlots(ctx context.Context, doctorID primitive.ObjectID, date time.Time) (*DaySlots, error) {
	doctor, err := b.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return b.daySlots(ctx, doctor, date)
}

func (b *Booking) daySlots(ctx context.Context, doctor *models.User, date time.Time) (*DaySlots, error) {
	now := b.now().In(b.loc)
	displayDate := date.Format(models.DisplayDateLayout)
	duration := b.durationFor(doctor)

	out := &DaySlots{
		DoctorID:    doctor.ID,
		Date:        date.Format(dateLayout),
		DisplayDate: displayDate,
		Available:   availability.IsDayAvailable(doctor.Schedule, availability.DayName(date)),
		SlotMinutes: duration,
	}

	if date.Before(startOfDay(now)) {
		out.Available = false
		out.Buckets = availability.PartitionAndMarkBooked(nil, availability.BookedSet{})
		return out, nil
	}

	taken, err := b.store.BookedTimes(ctx, doctor.ID, startOfDay(date))
	if err != nil {
		return nil, fmt.Errorf("booked times: %w", err)
	}

	buckets, err := availability.ForDate(doctor.Schedule, date, duration, availability.NewBookedSet(taken...), now)
	if err != nil {
		return nil, fmt.Errorf("slots for %s: %w", out.Date, err)
	}
	out.Buckets = buckets
	if first, ok := availability.SelectFirstBookable(buckets); ok {
		out.FirstBookable = &first
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Book reserves slot on date for patient as a pending request.
func (b *Booking) Book(ctx context.Context, patient *models.User, doctorID primitive.ObjectID, date time.Time, slot string) (*models.Appointment, error) {
	if patient.Role != models.RolePatient {
		return nil, ErrNotBookableByRole
	}
	doctor, err := b.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Verified {
		return nil, ErrDoctorUnverified
	}

	if date.Before(startOfDay(b.now().In(b.loc))) {
		return nil, ErrDateInPast
	}
	day, err := b.daySlots(ctx, doctor, date)
	if err != nil {
		return nil, err
	}
	chosen, ok := day.Buckets.Find(slot)
	if !ok || chosen.Booked {
		return nil, ErrSlotUnavailable
	}

	clock, err := time.ParseInLocation(models.DisplayTimeLayout, chosen.Time, b.loc)
	if err != nil {
		return nil, fmt.Errorf("slot %q: %w", chosen.Time, err)
	}
	scheduledAt := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, b.loc).UTC()

	apt := &models.Appointment{
		ID:          primitive.NewObjectID(),
		PatientID:   patient.ID,
		PatientName: patient.FullName,
		DoctorID:    doctor.ID,
		DoctorName:  doctor.FullName,
		Date:        day.DisplayDate,
		Time:        chosen.Time,
		ScheduledAt: &scheduledAt,
		Status:      models.StatusPending,
		CreatedAt:   b.now().UTC(),
	}
	// The check above reads a snapshot; the reservation settles concurrent requests.
	if err := b.store.ReserveSlot(ctx, doctor.ID, scheduledAt, apt.ID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	if err := b.store.CreateAppointment(ctx, apt); err != nil {
		b.Release(ctx, apt)
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"appointment_id": apt.ID.Hex(),
		"doctor_id":      doctor.ID.Hex(),
		"patient_id":     patient.ID.Hex(),
		"slot":           apt.Date + " " + apt.Time,
	}).Info("Appointment requested")

	if b.notifier != nil {
		b.notifier.SendAppointmentSMS(patient, apt)
	}
	return apt, nil
}

// Release frees the slot reservation of an appointment that stopped holding
// its slot. A failure is logged; the next booking reclaims a stale reservation.
func (b *Booking) Release(ctx context.Context, apt *models.Appointment) {
	if err := b.store.ReleaseSlot(ctx, apt.ID); err != nil {
		b.log.WithError(err).WithField("appointment_id", apt.ID.Hex()).Warn("Failed to release slot reservation")
	}
}

// Rate records the patient's rating of a completed visit, once.
func (b *Booking) Rate(ctx context.Context, apt *models.Appointment, viewer *models.User, stars int) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}
	viewerIsPatient := viewer.ID == apt.PatientID
	if !lifecycle.ShouldPromptRating(apt, viewerIsPatient) {
		return ErrRatingNotExpected
	}
	if err := b.store.MarkRated(ctx, apt.ID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrRatingNotExpected
		}
		return err
	}
	if err := b.store.AddDoctorRating(ctx, apt.DoctorID, stars); err != nil {
		return fmt.Errorf("add rating: %w", err)
	}
	b.log.WithFields(logrus.Fields{"appointment_id": apt.ID.Hex(), "stars": stars}).Info("Appointment rated")
	return nil
}

// SetSchedule validates and stores a doctor's weekly hours.
func (b *Booking) SetSchedule(ctx context.Context, doctorID primitive.ObjectID, schedule models.WeeklySchedule, slotMinutes int) error {
	normalized := make(models.WeeklySchedule, len(schedule))
	for day, ds := range schedule {
		normalized[strings.ToLower(strings.TrimSpace(day))] = ds
	}
	if err := availability.ValidateSchedule(normalized); err != nil {
		return err
	}
	if slotMinutes == 0 {
		slotMinutes = b.slotMinutes
	}
	if slotMinutes < 5 || slotMinutes > 240 {
		return ErrInvalidSlotMinutes
	}
	return b.store.SetDoctorSchedule(ctx, doctorID, normalized, slotMinutes)
}
