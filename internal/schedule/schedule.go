// Package schedule is the read-only index of terms and recurring teaching slots.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the civil date format used for session dates and term bounds.
const DateLayout = "2006-01-02"

var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrNoActiveTerm = errors.New("no active term")
)

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	limits := []int{24, 60, 60}
	var total int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v >= limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		switch i {
		case 0:
			total += v * 3600
		case 1:
			total += v * 60
		default:
			total += v
		}
	}
	return TimeOfDay(total), nil
}

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// On places the time of day on a civil date in loc.
func (t TimeOfDay) On(date string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	s := int(t)
	return time.Date(d.Year(), d.Month(), d.Day(), s/3600, (s%3600)/60, s%60, 0, loc), nil
}

// ParseDate parses a YYYY-MM-DD civil date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %q", s)
	}
	return d, nil
}

// Today returns the civil date and weekday of now in loc.
func Today(now time.Time, loc *time.Location) (string, time.Weekday) {
	local := now.In(loc)
	return local.Format(DateLayout), local.Weekday()
}

// Term is an academic period gating which slots are active.
type Term struct {
	ID        int64  `db:"id" json:"id" yaml:"id"`
	Name      string `db:"name" json:"name" yaml:"name"`
	StartDate string `db:"start_date" json:"start_date" yaml:"start_date"`
	EndDate   string `db:"end_date" json:"end_date" yaml:"end_date"`
}

// Contains reports whether the civil date falls inside [StartDate, EndDate].
func (t Term) Contains(date string) bool {
	return t.StartDate <= date && date <= t.EndDate
}

// Slot is a recurring class occurrence.
type Slot struct {
	ID        int64        `json:"id"`
	TermID    int64        `json:"term_id"`
	Weekday   time.Weekday `json:"weekday"`
	Start     TimeOfDay    `json:"-"`
	End       TimeOfDay    `json:"-"`
	Room      string       `json:"room"`
	Subject   string       `json:"subject"`
	Group     string       `json:"group"`
	TeacherID int64        `json:"teacher_id"`
}

func (s Slot) StartOn(date string, loc *time.Location) (time.Time, error) {
	return s.Start.On(date, loc)
}

func (s Slot) EndOn(date string, loc *time.Location) (time.Time, error) {
	return s.End.On(date, loc)
}

// Index looks up slots and terms. Implementations never write.
type Index interface {
	// GetSlot returns ErrSlotNotFound when the id is unknown.
	GetSlot(ctx context.Context, id int64) (Slot, error)
	// ListSlots returns slots of a term on a weekday ordered by start time.
	// A zero teacherID lists every teacher.
	ListSlots(ctx context.Context, termID int64, weekday time.Weekday, teacherID int64) ([]Slot, error)
	// ActiveTerm returns ErrNoActiveTerm when no term contains date.
	ActiveTerm(ctx context.Context, date string) (Term, error)
}
