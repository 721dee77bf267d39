package models

import "time"

// Slot is one of the two fixed daily attendance periods.
type Slot int

const (
	MorningSlot   Slot = 1
	AfternoonSlot Slot = 2
)

func (s Slot) Valid() bool {
	return s == MorningSlot || s == AfternoonSlot
}

func (s Slot) String() string {
	switch s {
	case MorningSlot:
		return "morning"
	case AfternoonSlot:
		return "afternoon"
	default:
		return "unknown"
	}
}

type Course struct {
	ID   int    `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	Slot Slot   `json:"slot" bson:"slot"`
}

type RegistryInfo struct {
	Version     int       `json:"version" bson:"version"`
	Fingerprint string    `json:"fingerprint" bson:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

type RegistryResponse struct {
	RegistryInfo
	Mode    string `json:"mode"`
	Courses int    `json:"courses"`
	Drift   bool   `json:"drift"`
}
