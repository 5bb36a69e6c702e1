package attendance

import "time"

// Status is the punctuality outcome of a session.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	}
	return false
}

// AutoAbsenceNote marks records written by the sweep instead of a scan.
const AutoAbsenceNote = "absence recorded automatically: no QR scan before the session ended"

// Geolocation is the optional position reported with a scan.
type Geolocation struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lon float64 `json:"lon" binding:"min=-180,max=180"`
}

// Key identifies the single record allowed per teacher, slot and day.
type Key struct {
	SlotID      int64
	TeacherID   int64
	SessionDate string
}

// Record is the durable attendance outcome. Records are never updated.
type Record struct {
	ID          string    `db:"id" json:"id"`
	SlotID      int64     `db:"slot_id" json:"slot_id"`
	TeacherID   int64     `db:"teacher_id" json:"teacher_id"`
	SessionDate string    `db:"session_date" json:"session_date"`
	MarkedAt    time.Time `db:"marked_at" json:"marked_at"`
	Status      Status    `db:"status" json:"status"`
	Latitude    *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64  `db:"longitude" json:"longitude,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (r Record) Key() Key {
	return Key{SlotID: r.SlotID, TeacherID: r.TeacherID, SessionDate: r.SessionDate}
}

// Filter narrows record listings. Zero fields are ignored.
type Filter struct {
	TeacherID int64
	From      string // YYYY-MM-DD, inclusive
	To        string // YYYY-MM-DD, inclusive
	Status    Status
	Limit     int
}

// Stats summarises a set of records.
type Stats struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Late           int     `json:"late"`
	Absent         int     `json:"absent"`
	AttendanceRate float64 `json:"attendance_rate"`
}
