package availability

import "strings"

type DayPart string

const (
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
	Night     DayPart = "night"
)

// PartOfHour maps a 24-hour clock hour to its day part.
func PartOfHour(hour int) DayPart {
	switch {
	case hour < 12:
		return Morning
	case hour < 17:
		return Afternoon
	case hour < 20:
		return Evening
	default:
		return Night
	}
}

// ClassifySlot returns the day part of an "hh:mm a" slot. Input that does not
// parse is reported as Morning, which is what existing clients expect.
func ClassifySlot(slot string) DayPart {
	m, ok := slotMinutes(slot)
	if !ok {
		return Morning
	}
	return PartOfHour(m / 60)
}

type Slot struct {
	Time   string  `json:"time"`
	Part   DayPart `json:"part"`
	Booked bool    `json:"isBooked"`
}

type Buckets struct {
	Morning   []Slot `json:"morning"`
	Afternoon []Slot `json:"afternoon"`
	Evening   []Slot `json:"evening"`
	Night     []Slot `json:"night"`
}

// InOrder returns the buckets morning first, night last.
func (b Buckets) InOrder() [][]Slot {
	return [][]Slot{b.Morning, b.Afternoon, b.Evening, b.Night}
}

// Find looks a slot up by time across all buckets.
func (b Buckets) Find(slot string) (Slot, bool) {
	want, wantOK := slotMinutes(slot)
	for _, bucket := range b.InOrder() {
		for _, s := range bucket {
			if m, ok := slotMinutes(s.Time); ok && wantOK && m == want {
				return s, true
			}
			if s.Time == slot {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// BookedSet holds already booked slots keyed by minutes since midnight, so
// "9:00 AM" and "09:00 AM" name the same slot. Entries that are not valid
// "hh:mm a" values only match the identical string.
// The zero value is an empty set.
type BookedSet struct {
	minutes map[int]struct{}
	raw     map[string]struct{}
}

func NewBookedSet(times ...string) BookedSet {
	b := BookedSet{minutes: make(map[int]struct{}), raw: make(map[string]struct{})}
	for _, t := range times {
		if m, ok := slotMinutes(t); ok {
			b.minutes[m] = struct{}{}
			continue
		}
		b.raw[strings.TrimSpace(t)] = struct{}{}
	}
	return b
}

func (b BookedSet) Contains(slot string) bool {
	if m, ok := slotMinutes(slot); ok {
		_, hit := b.minutes[m]
		return hit
	}
	_, hit := b.raw[strings.TrimSpace(slot)]
	return hit
}

func (b BookedSet) Len() int {
	return len(b.minutes) + len(b.raw)
}

// PartitionAndMarkBooked groups slots by day part, keeping their relative
// order, and flags the ones present in booked.
func PartitionAndMarkBooked(all []string, booked BookedSet) Buckets {
	b := Buckets{
		Morning:   []Slot{},
		Afternoon: []Slot{},
		Evening:   []Slot{},
		Night:     []Slot{},
	}
	for _, t := range all {
		s := Slot{Time: t, Part: ClassifySlot(t), Booked: booked.Contains(t)}
		switch s.Part {
		case Morning:
			b.Morning = append(b.Morning, s)
		case Afternoon:
			b.Afternoon = append(b.Afternoon, s)
		case Evening:
			b.Evening = append(b.Evening, s)
		default:
			b.Night = append(b.Night, s)
		}
	}
	return b
}

// SelectFirstBookable returns the earliest free slot, searching morning to
// night. ok is false when every slot is booked or there are none.
func SelectFirstBookable(b Buckets) (slot Slot, ok bool) {
	for _, bucket := range b.InOrder() {
		for _, s := range bucket {
			if !s.Booked {
				return s, true
			}
		}
	}
	return Slot{}, false
}
