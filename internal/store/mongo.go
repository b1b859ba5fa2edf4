package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/medibook-api/internal/lifecycle"
	"github.com/harentsoaR/medibook-api/internal/models"
)

// Statuses whose appointment still occupies its slot.
var slotHoldingStatuses = []string{models.StatusPending, models.StatusApproved, models.StatusCompleted}

type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the indexes the queries below rely on. Safe to call
// on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "specialty", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	_, err = s.db.Collection(appointmentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "scheduledAt", Value: 1}}},
		{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("appointments indexes: %w", err)
	}
	_, err = s.db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "appointmentId", Value: 1}, {Key: "sentAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("messages indexes: %w", err)
	}
	_, err = s.db.Collection(reservationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "doctorId", Value: 1}, {Key: "startsAt", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("reservations indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id primitive.ObjectID, upd UserUpdate) error {
	set := bson.M{}
	if upd.FullName != nil {
		set["fullName"] = *upd.FullName
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.PushToken != nil {
		set["pushToken"] = *upd.PushToken
	}
	if upd.PasswordHash != nil {
		set["password"] = *upd.PasswordHash
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateUser(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (s *MongoStore) updateUser(ctx context.Context, filter, update bson.M) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListDoctors(ctx context.Context, f DoctorFilter) ([]models.User, error) {
	filter := bson.M{"role": models.RoleDoctor}
	if f.Specialty != "" {
		filter["specialty"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Specialty) + "$", Options: "i"}
	}
	if f.Verified != nil {
		filter["verified"] = *f.Verified
	}

	opts := options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}})
	cursor, err := s.db.Collection(usersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}
	defer cursor.Close(ctx)

	doctors := make([]models.User, 0)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	return doctors, nil
}

func (s *MongoStore) SetDoctorSchedule(ctx context.Context, doctorID primitive.ObjectID, schedule models.WeeklySchedule, slotMinutes int) error {
	return s.updateUser(ctx,
		bson.M{"_id": doctorID, "role": models.RoleDoctor},
		bson.M{"$set": bson.M{"schedule": schedule, "slotMinutes": slotMinutes}},
	)
}

func (s *MongoStore) SetDoctorVerified(ctx context.Context, doctorID primitive.ObjectID) error {
	return s.updateUser(ctx,
		bson.M{"_id": doctorID, "role": models.RoleDoctor},
		bson.M{"$set": bson.M{"verified": true}},
	)
}

func (s *MongoStore) AddDoctorRating(ctx context.Context, doctorID primitive.ObjectID, stars int) error {
	return s.updateUser(ctx,
		bson.M{"_id": doctorID, "role": models.RoleDoctor},
		bson.M{"$inc": bson.M{"ratingSum": stars, "ratingCount": 1}},
	)
}

func (s *MongoStore) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	if _, err := s.db.Collection(appointmentsCollection).InsertOne(ctx, apt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *MongoStore) FindAppointment(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var apt models.Appointment
	if err := s.db.Collection(appointmentsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&apt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &apt, nil
}

func (s *MongoStore) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	filter := bson.M{}
	if f.PatientID != nil {
		filter["patientId"] = *f.PatientID
	}
	if f.DoctorID != nil {
		filter["doctorId"] = *f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	// Newest first
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(appointmentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return appointments, nil
}

func (s *MongoStore) BookedTimes(ctx context.Context, doctorID primitive.ObjectID, day time.Time) ([]string, error) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	filter := bson.M{
		"doctorId": doctorID,
		"status":   bson.M{"$in": slotHoldingStatuses},
		"$or": bson.A{
			bson.M{"scheduledAt": bson.M{"$gte": start.UTC(), "$lt": end.UTC()}},
			bson.M{"date": bson.M{"$in": lifecycle.DateKeys(start)}},
		},
	}
	opts := options.Find().SetProjection(bson.M{"time": 1})
	cursor, err := s.db.Collection(appointmentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find booked times: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Time string `bson:"time"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode booked times: %w", err)
	}
	times := make([]string, 0, len(rows))
	for _, r := range rows {
		times = append(times, r.Time)
	}
	return times, nil
}

func (s *MongoStore) SetAppointmentStatus(ctx context.Context, id primitive.ObjectID, status string, from ...string) error {
	filter := bson.M{"_id": id}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	res, err := s.db.Collection(appointmentsCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missingOrConflict(ctx, id)
	}
	return nil
}

func (s *MongoStore) MarkCompleted(ctx context.Context, id, doctorID primitive.ObjectID) (bool, error) {
	appointments := s.db.Collection(appointmentsCollection)

	err := appointments.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusApproved, "patientCounted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"status": models.StatusCompleted, "patientCounted": true}},
	).Err()
	switch {
	case err == nil:
		if err := s.updateUser(ctx, bson.M{"_id": doctorID}, bson.M{"$inc": bson.M{"patientCount": 1}}); err != nil {
			return false, fmt.Errorf("increment patient count: %w", err)
		}
		return true, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, fmt.Errorf("complete appointment: %w", err)
	}

	// Either already counted or no longer approved.
	if err := s.SetAppointmentStatus(ctx, id, models.StatusCompleted, models.StatusApproved); err != nil {
		return false, err
	}
	return false, nil
}

func (s *MongoStore) MarkRated(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(appointmentsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusCompleted, "ratingGiven": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"ratingGiven": true}},
	)
	if err != nil {
		return fmt.Errorf("mark rated: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missingOrConflict(ctx, id)
	}
	return nil
}

func (s *MongoStore) missingOrConflict(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.db.Collection(appointmentsCollection).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count appointment: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// A reservation whose appointment never got written is reclaimed after this.
const reservationGrace = 5 * time.Minute

type slotReservation struct {
	AppointmentID primitive.ObjectID `bson:"_id"`
	DoctorID      primitive.ObjectID `bson:"doctorId"`
	StartsAt      time.Time          `bson:"startsAt"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

// ReserveSlot relies on the unique (doctorId, startsAt) index. A reservation
// left behind by a cancelled, rejected or never-created appointment is
// replaced once.
func (s *MongoStore) ReserveSlot(ctx context.Context, doctorID primitive.ObjectID, startsAt time.Time, appointmentID primitive.ObjectID) error {
	coll := s.db.Collection(reservationsCollection)
	res := slotReservation{
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		StartsAt:      startsAt.UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	_, err := coll.InsertOne(ctx, res)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert slot reservation: %w", err)
	}

	var held slotReservation
	err = coll.FindOne(ctx, bson.M{"doctorId": doctorID, "startsAt": res.StartsAt}).Decode(&held)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		// Released in the meantime.
	case err != nil:
		return fmt.Errorf("find slot reservation: %w", err)
	default:
		stale, err := s.reservationStale(ctx, held)
		if err != nil {
			return err
		}
		if !stale {
			return ErrDuplicate
		}
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": held.AppointmentID, "createdAt": held.CreatedAt}); err != nil {
			return fmt.Errorf("delete stale reservation: %w", err)
		}
	}

	if _, err := coll.InsertOne(ctx, res); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert slot reservation: %w", err)
	}
	return nil
}

func (s *MongoStore) reservationStale(ctx context.Context, held slotReservation) (bool, error) {
	var apt struct {
		Status string `bson:"status"`
	}
	opts := options.FindOne().SetProjection(bson.M{"status": 1})
	err := s.db.Collection(appointmentsCollection).FindOne(ctx, bson.M{"_id": held.AppointmentID}, opts).Decode(&apt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Since(held.CreatedAt) > reservationGrace, nil
	}
	if err != nil {
		return false, fmt.Errorf("find reserving appointment: %w", err)
	}
	return !slices.Contains(slotHoldingStatuses, apt.Status), nil
}

func (s *MongoStore) ReleaseSlot(ctx context.Context, appointmentID primitive.ObjectID) error {
	if _, err := s.db.Collection(reservationsCollection).DeleteOne(ctx, bson.M{"_id": appointmentID}); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func (s *MongoStore) AddMessage(ctx context.Context, m *models.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := s.db.Collection(messagesCollection).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, appointmentID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}})
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, bson.M{"appointmentId": appointmentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]models.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

var _ Store = (*MongoStore)(nil)
