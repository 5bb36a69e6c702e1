package attendance

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"qrattend/internal/metrics"
	"qrattend/internal/schedule"
)

// SweepResult summarises one reconciliation run.
type SweepResult struct {
	RunID      string    `json:"run_id"`
	AsOf       time.Time `json:"as_of"`
	Date       string    `json:"date"`
	TermID     int64     `json:"term_id,omitempty"`
	Considered int       `json:"considered"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// Sweeper closes out sessions that ended without a scan by inserting absence records.
type Sweeper struct {
	slots  schedule.Index
	repo   Repository
	loc    *time.Location
	logger *log.Logger
}

// NewSweeper builds a sweeper. A nil logger uses the standard logger.
func NewSweeper(slots schedule.Index, repo Repository, loc *time.Location, logger *log.Logger) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{slots: slots, repo: repo, loc: loc, logger: logger}
}

// Sweep inserts an absent record for every slot of asOf's civil day that has ended and has no record.
// Per-slot failures are logged and counted; only failures to read the schedule abort the run.
// Running it again for the same day creates nothing new.
func (s *Sweeper) Sweep(ctx context.Context, asOf time.Time) (SweepResult, error) {
	started := time.Now()
	date, weekday := schedule.Today(asOf, s.loc)
	res := SweepResult{
		RunID: ulid.MustNew(ulid.Timestamp(started), rand.Reader).String(),
		AsOf:  asOf,
		Date:  date,
	}
	defer func() {
		metrics.ObserveSweep(res.Created, res.Failed, time.Since(started).Seconds())
	}()

	term, err := s.slots.ActiveTerm(ctx, date)
	if errors.Is(err, schedule.ErrNoActiveTerm) {
		s.logger.Printf("[sweep] run=%s date=%s: no active term", res.RunID, date)
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.TermID = term.ID

	slots, err := s.slots.ListSlots(ctx, term.ID, weekday, 0)
	if err != nil {
		return res, err
	}

	for _, slot := range slots {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Considered++
		created, err := s.closeSlot(ctx, slot, date, asOf)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Printf("[sweep] run=%s slot=%d teacher=%d date=%s failed: %v", res.RunID, slot.ID, slot.TeacherID, date, err)
		case created:
			res.Created++
		default:
			res.Skipped++
		}
	}

	s.logger.Printf("[sweep] run=%s date=%s term=%d considered=%d created=%d skipped=%d failed=%d",
		res.RunID, date, term.ID, res.Considered, res.Created, res.Skipped, res.Failed)
	return res, nil
}

func (s *Sweeper) closeSlot(ctx context.Context, slot schedule.Slot, date string, asOf time.Time) (bool, error) {
	end, err := slot.EndOn(date, s.loc)
	if err != nil {
		return false, err
	}
	if asOf.Before(end) {
		return false, nil
	}

	key := Key{SlotID: slot.ID, TeacherID: slot.TeacherID, SessionDate: date}
	existing, err := s.repo.Find(ctx, key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	note := AutoAbsenceNote
	_, err = s.repo.Insert(ctx, Record{
		SlotID:      slot.ID,
		TeacherID:   slot.TeacherID,
		SessionDate: date,
		MarkedAt:    end,
		Status:      StatusAbsent,
		Notes:       &note,
	})
	if errors.Is(err, ErrDuplicate) {
		// a late scan landed between Find and Insert
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
