package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName  string             `bson:"fullName" json:"fullName"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // Hide from JSON responses
	Role      string             `bson:"role" json:"role"`  // "patient", "doctor", "admin"
	Phone     string             `bson:"phone" json:"phone"`
	PushToken string             `bson:"pushToken,omitempty" json:"-"`

	// Doctor-only fields, zero for patients.
	Specialty    string         `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Verified     bool           `bson:"verified" json:"verified"`
	PatientCount int            `bson:"patientCount" json:"patientCount"`
	RatingSum    int            `bson:"ratingSum" json:"-"`
	RatingCount  int            `bson:"ratingCount" json:"ratingCount"`
	Schedule     WeeklySchedule `bson:"schedule,omitempty" json:"schedule,omitempty"`
	SlotMinutes  int            `bson:"slotMinutes,omitempty" json:"slotMinutes,omitempty"`
}

// AverageRating is 0 until the first rating arrives.
func (u *User) AverageRating() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return float64(u.RatingSum) / float64(u.RatingCount)
}

// DoctorProfile is the public view of a doctor returned by search.
type DoctorProfile struct {
	ID            primitive.ObjectID `json:"id"`
	FullName      string             `json:"fullName"`
	Specialty     string             `json:"specialty"`
	Verified      bool               `json:"verified"`
	PatientCount  int                `json:"patientCount"`
	AverageRating float64            `json:"averageRating"`
	RatingCount   int                `json:"ratingCount"`
}

func NewDoctorProfile(u *User) DoctorProfile {
	return DoctorProfile{
		ID:            u.ID,
		FullName:      u.FullName,
		Specialty:     u.Specialty,
		Verified:      u.Verified,
		PatientCount:  u.PatientCount,
		AverageRating: u.AverageRating(),
		RatingCount:   u.RatingCount,
	}
}
