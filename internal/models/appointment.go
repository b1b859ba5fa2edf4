package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// Display layouts shared with the mobile client ("MMM dd, yyyy" and "hh:mm a").
const (
	DisplayDateLayout = "Jan 02, 2006"
	DisplayTimeLayout = "03:04 PM"
)

type Appointment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID   primitive.ObjectID `bson:"patientId" json:"patientId"`
	PatientName string             `bson:"patientName" json:"patientName"`
	DoctorID    primitive.ObjectID `bson:"doctorId" json:"doctorId"`
	DoctorName  string             `bson:"doctorName" json:"doctorName"`
	Date        string             `bson:"date" json:"date"` // display string, e.g. "Jan 02, 2024"
	Time        string             `bson:"time" json:"time"` // display string, e.g. "09:00 AM"
	// ScheduledAt is absent on records created before it was introduced.
	ScheduledAt    *time.Time `bson:"scheduledAt,omitempty" json:"scheduledAt,omitempty"`
	Status         string     `bson:"status" json:"status"`
	PatientCounted bool       `bson:"patientCounted" json:"patientCounted"`
	RatingGiven    bool       `bson:"ratingGiven" json:"ratingGiven"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
}

// HasParticipant reports whether the user is the patient or the doctor of the appointment.
func (a *Appointment) HasParticipant(userID primitive.ObjectID) bool {
	return a.PatientID == userID || a.DoctorID == userID
}
