package attendance

import (
	"context"
	"errors"
	"time"

	"qrattend/internal/schedule"
)

// ScanState is the scan status of a session shown to the teacher.
type ScanState string

const (
	ScanPending ScanState = "pending"
	ScanMarked  ScanState = "marked"
)

// Session is one of today's slots for a teacher with its token and scan status.
type Session struct {
	Slot        schedule.Slot `json:"slot"`
	SessionDate string        `json:"session_date"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
	State       ScanState     `json:"scan_status"`
	Token       string        `json:"token,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	Record      *Record       `json:"record,omitempty"`
}

// Today describes the civil day the sessions were computed for.
type Today struct {
	Date     string         `json:"date"`
	Weekday  time.Weekday   `json:"weekday"`
	Term     *schedule.Term `json:"term,omitempty"`
	Sessions []Session      `json:"sessions"`
}

// TodaySessions lists teacherID's slots for today in start order. Sessions without
// a record get a fresh token that expires SessionGrace after the slot ends. It never writes.
func (s *Service) TodaySessions(ctx context.Context, teacherID int64) (Today, error) {
	date, weekday := schedule.Today(s.opts.Now(), s.opts.Location)
	out := Today{Date: date, Weekday: weekday, Sessions: []Session{}}

	term, err := s.slots.ActiveTerm(ctx, date)
	if errors.Is(err, schedule.ErrNoActiveTerm) {
		return out, nil
	}
	if err != nil {
		return Today{}, err
	}
	out.Term = &term

	slots, err := s.slots.ListSlots(ctx, term.ID, weekday, teacherID)
	if err != nil {
		return Today{}, err
	}

	for _, slot := range slots {
		sess := Session{
			Slot:        slot,
			SessionDate: date,
			Start:       slot.Start.String(),
			End:         slot.End.String(),
			State:       ScanPending,
		}
		rec, err := s.repo.Find(ctx, Key{SlotID: slot.ID, TeacherID: teacherID, SessionDate: date})
		if err != nil {
			return Today{}, err
		}
		if rec != nil {
			sess.State = ScanMarked
			sess.Record = rec
			out.Sessions = append(out.Sessions, sess)
			continue
		}

		end, err := slot.EndOn(date, s.opts.Location)
		if err != nil {
			return Today{}, err
		}
		exp := end.Add(s.opts.SessionGrace)
		tok, err := s.codec.IssueUntil(slot.ID, date, exp)
		if err != nil {
			return Today{}, err
		}
		sess.Token = tok
		sess.ExpiresAt = &exp
		out.Sessions = append(out.Sessions, sess)
	}
	return out, nil
}
