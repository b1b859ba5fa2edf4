package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/harentsoaR/medibook-api/internal/models"
)

func TestMongoStore_Users(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create user assigns an id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		s := NewMongoStore(mt.DB)

		u := &models.User{Email: "a@b.c", Role: models.RolePatient}
		require.NoError(mt, s.CreateUser(context.Background(), u))
		assert.False(mt, u.ID.IsZero())
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		s := NewMongoStore(mt.DB)

		err := s.CreateUser(context.Background(), &models.User{Email: "a@b.c"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + usersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "fullName", Value: "Dr. Rabe"},
			{Key: "role", Value: models.RoleDoctor},
			{Key: "specialty", Value: "cardiology"},
		}))
		s := NewMongoStore(mt.DB)

		u, err := s.FindUserByID(context.Background(), id)
		require.NoError(mt, err)
		assert.Equal(mt, "Dr. Rabe", u.FullName)
		assert.Equal(mt, "cardiology", u.Specialty)
	})

	mt.Run("find missing user", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + usersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		s := NewMongoStore(mt.DB)

		_, err := s.FindUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		s := NewMongoStore(mt.DB)

		name := "New Name"
		err := s.UpdateUser(context.Background(), primitive.NewObjectID(), UserUpdate{FullName: &name})
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoStore_MarkCompleted(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id, doctorID := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("first completion counts the patient", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: id},
				{Key: "status", Value: models.StatusApproved},
			}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		s := NewMongoStore(mt.DB)

		counted, err := s.MarkCompleted(context.Background(), id, doctorID)
		require.NoError(mt, err)
		assert.True(mt, counted)
	})

	mt.Run("already counted only flips the status", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		s := NewMongoStore(mt.DB)

		counted, err := s.MarkCompleted(context.Background(), id, doctorID)
		require.NoError(mt, err)
		assert.False(mt, counted)
	})

	mt.Run("no longer approved", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + appointmentsCollection
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		s := NewMongoStore(mt.DB)

		_, err := s.MarkCompleted(context.Background(), id, doctorID)
		assert.ErrorIs(mt, err, ErrConflict)
	})
}

func TestMongoStore_BookedTimes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns slot times", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + appointmentsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "time", Value: "09:00 AM"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "time", Value: "02:30 PM"}},
		))
		s := NewMongoStore(mt.DB)

		times, err := s.BookedTimes(context.Background(), primitive.NewObjectID(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(mt, err)
		assert.Equal(mt, []string{"09:00 AM", "02:30 PM"}, times)
	})

	mt.Run("matches legacy date spellings and scheduledAt", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + appointmentsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		s := NewMongoStore(mt.DB)

		_, err := s.BookedTimes(context.Background(), primitive.NewObjectID(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(mt, err)
		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		cmd := started.Command.String()
		assert.Contains(mt, cmd, `"Jan 02, 2024"`)
		assert.Contains(mt, cmd, `"Jan 2, 2024"`)
		assert.Contains(mt, cmd, `"January 2, 2024"`)
		assert.Contains(mt, cmd, `"scheduledAt"`)
	})
}

func TestMongoStore_ReserveSlot(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	doctorID := primitive.NewObjectID()
	startsAt := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	duplicate := mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}

	holder := func(ns string, appointmentID primitive.ObjectID, createdAt time.Time) bson.D {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: appointmentID},
			{Key: "doctorId", Value: doctorID},
			{Key: "startsAt", Value: startsAt},
			{Key: "createdAt", Value: createdAt},
		})
	}

	mt.Run("free slot", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		s := NewMongoStore(mt.DB)

		assert.NoError(mt, s.ReserveSlot(context.Background(), doctorID, startsAt, primitive.NewObjectID()))
	})

	mt.Run("held by a live appointment", func(mt *mtest.T) {
		other := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(duplicate),
			holder(mt.DB.Name()+"."+reservationsCollection, other, time.Now().UTC()),
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+appointmentsCollection, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: other},
				{Key: "status", Value: models.StatusPending},
			}),
		)
		s := NewMongoStore(mt.DB)

		err := s.ReserveSlot(context.Background(), doctorID, startsAt, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("held by a cancelled appointment", func(mt *mtest.T) {
		other := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(duplicate),
			holder(mt.DB.Name()+"."+reservationsCollection, other, time.Now().UTC()),
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+appointmentsCollection, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: other},
				{Key: "status", Value: models.StatusCancelled},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(),
		)
		s := NewMongoStore(mt.DB)

		assert.NoError(mt, s.ReserveSlot(context.Background(), doctorID, startsAt, primitive.NewObjectID()))
	})

	mt.Run("fresh reservation of an appointment still being written", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(duplicate),
			holder(mt.DB.Name()+"."+reservationsCollection, primitive.NewObjectID(), time.Now().UTC()),
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+appointmentsCollection, mtest.FirstBatch),
		)
		s := NewMongoStore(mt.DB)

		err := s.ReserveSlot(context.Background(), doctorID, startsAt, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("orphaned reservation past the grace period", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(duplicate),
			holder(mt.DB.Name()+"."+reservationsCollection, primitive.NewObjectID(), time.Now().Add(-time.Hour).UTC()),
			mtest.CreateCursorResponse(0, mt.DB.Name()+"."+appointmentsCollection, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(),
		)
		s := NewMongoStore(mt.DB)

		assert.NoError(mt, s.ReserveSlot(context.Background(), doctorID, startsAt, primitive.NewObjectID()))
	})

	mt.Run("release", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		s := NewMongoStore(mt.DB)

		assert.NoError(mt, s.ReleaseSlot(context.Background(), primitive.NewObjectID()))
	})
}
