package models

// DaySchedule holds one weekday's opening hours as 24-hour "HH:mm" strings.
// StartTime and EndTime are ignored when Available is false.
type DaySchedule struct {
	Available bool   `bson:"available" json:"available"`
	StartTime string `bson:"startTime" json:"startTime"`
	EndTime   string `bson:"endTime" json:"endTime"`
}

// WeeklySchedule is keyed by lowercase day name ("monday" ... "sunday").
type WeeklySchedule map[string]DaySchedule

// DefaultDaySchedule applies to days missing from a doctor's schedule.
var DefaultDaySchedule = DaySchedule{Available: true, StartTime: "09:00", EndTime: "17:00"}

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
