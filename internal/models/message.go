package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one entry of the chat thread attached to an appointment.
type Message struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppointmentID primitive.ObjectID `bson:"appointmentId" json:"appointmentId"`
	SenderID      primitive.ObjectID `bson:"senderId" json:"senderId"`
	SenderRole    string             `bson:"senderRole" json:"senderRole"`
	Text          string             `bson:"text" json:"text"`
	SentAt        time.Time          `bson:"sentAt" json:"sentAt"`
}
