package attendance

import (
	"context"
	"errors"
	"math"
	"time"

	"qrattend/internal/metrics"
	"qrattend/internal/schedule"
	"qrattend/internal/token"
)

// Codec is the token capability the service relies on.
type Codec interface {
	Issue(slotID int64, sessionDate string, validity time.Duration) (string, time.Time, error)
	IssueUntil(slotID int64, sessionDate string, expiresAt time.Time) (string, error)
	Consume(tok string) (token.Claims, error)
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	Location     *time.Location
	IssueTTL     time.Duration    // validity of manually issued tokens
	SessionGrace time.Duration    // session tokens stay valid this long after the slot ends
	Now          func() time.Time // clock, mockable
}

// Service coordinates scans, session listings and attendance history.
type Service struct {
	codec Codec
	slots schedule.Index
	repo  Repository
	opts  Options
}

// NewService creates a service backed by a repository.
func NewService(codec Codec, slots schedule.Index, repo Repository, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.IssueTTL <= 0 {
		opts.IssueTTL = 2 * time.Hour
	}
	if opts.SessionGrace <= 0 {
		opts.SessionGrace = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{codec: codec, slots: slots, repo: repo, opts: opts}
}

// ScanResult is a recorded attendance with its signed delay from the slot start.
type ScanResult struct {
	Record       Record `json:"record"`
	Status       Status `json:"status"`
	DeltaMinutes int    `json:"delta_minutes"`
	SlotStart    string `json:"slot_start"`
}

// RecordScan validates a presented token for teacherID and writes the attendance record.
// On ErrAlreadyMarked the returned result holds the existing record.
func (s *Service) RecordScan(ctx context.Context, teacherID int64, tok string, geo *Geolocation) (ScanResult, error) {
	res, err := s.recordScan(ctx, teacherID, tok, geo)
	metrics.ObserveScan(scanOutcome(res, err))
	return res, err
}

func (s *Service) recordScan(ctx context.Context, teacherID int64, tok string, geo *Geolocation) (ScanResult, error) {
	claims, err := s.codec.Consume(tok)
	if err != nil {
		return ScanResult{}, err
	}

	slot, err := s.slots.GetSlot(ctx, claims.SlotID)
	if err != nil {
		return ScanResult{}, err
	}
	if slot.TeacherID != teacherID {
		return ScanResult{}, ErrNotAssigned
	}

	now := s.opts.Now()
	today, weekday := schedule.Today(now, s.opts.Location)
	if claims.SessionDate != today || slot.Weekday != weekday {
		return ScanResult{}, ErrWrongDate
	}

	start, err := slot.StartOn(claims.SessionDate, s.opts.Location)
	if err != nil {
		return ScanResult{}, err
	}
	key := Key{SlotID: slot.ID, TeacherID: teacherID, SessionDate: claims.SessionDate}

	existing, err := s.repo.Find(ctx, key)
	if err != nil {
		return ScanResult{}, err
	}
	if existing != nil {
		return alreadyMarked(*existing, slot, start)
	}

	delta := DeltaMinutes(now, start)
	rec := Record{
		SlotID:      slot.ID,
		TeacherID:   teacherID,
		SessionDate: claims.SessionDate,
		MarkedAt:    now,
		Status:      Classify(delta),
	}
	if geo != nil {
		lat, lon := geo.Lat, geo.Lon
		rec.Latitude, rec.Longitude = &lat, &lon
	}

	saved, err := s.repo.Insert(ctx, rec)
	if errors.Is(err, ErrDuplicate) {
		// a concurrent scan or the sweep won the insert
		winner, findErr := s.repo.Find(ctx, key)
		if findErr != nil {
			return ScanResult{}, findErr
		}
		if winner == nil {
			return ScanResult{}, err
		}
		return alreadyMarked(*winner, slot, start)
	}
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{
		Record:       saved,
		Status:       saved.Status,
		DeltaMinutes: delta,
		SlotStart:    slot.Start.String(),
	}, nil
}

func alreadyMarked(rec Record, slot schedule.Slot, start time.Time) (ScanResult, error) {
	res := ScanResult{
		Record:       rec,
		Status:       rec.Status,
		DeltaMinutes: DeltaMinutes(rec.MarkedAt, start),
		SlotStart:    slot.Start.String(),
	}
	return res, &AlreadyMarkedError{Record: rec}
}

func scanOutcome(res ScanResult, err error) string {
	switch {
	case err == nil:
		return string(res.Status)
	case errors.Is(err, token.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, token.ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, schedule.ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, ErrNotAssigned):
		return "not_assigned"
	case errors.Is(err, ErrWrongDate):
		return "wrong_date"
	case errors.Is(err, ErrAlreadyMarked):
		return "already_marked"
	default:
		return "error"
	}
}

// IssuedToken is a token minted for a slot and date.
type IssuedToken struct {
	Token       string        `json:"token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	SessionDate string        `json:"session_date"`
	Slot        schedule.Slot `json:"slot"`
}

// IssueFor mints a token for slotID on sessionDate, valid for the configured TTL from now.
func (s *Service) IssueFor(ctx context.Context, slotID int64, sessionDate string) (IssuedToken, error) {
	d, err := schedule.ParseDate(sessionDate, s.opts.Location)
	if err != nil {
		return IssuedToken{}, invalidf("session_date must be YYYY-MM-DD")
	}
	sessionDate = d.Format(schedule.DateLayout)
	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return IssuedToken{}, err
	}
	tok, exp, err := s.codec.Issue(slot.ID, sessionDate, s.opts.IssueTTL)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: tok, ExpiresAt: exp, SessionDate: sessionDate, Slot: slot}, nil
}

// History lists a teacher's own records. The rate counts only on-time sessions.
func (s *Service) History(ctx context.Context, teacherID int64, f Filter) ([]Record, Stats, error) {
	f.TeacherID = teacherID
	recs, err := s.list(ctx, f)
	if err != nil {
		return nil, Stats{}, err
	}
	st := Summarize(recs)
	st.AttendanceRate = rate(st.Present, st.Total)
	return recs, st, nil
}

// Report lists records across teachers. The rate counts present and late sessions.
func (s *Service) Report(ctx context.Context, f Filter) ([]Record, Stats, error) {
	recs, err := s.list(ctx, f)
	if err != nil {
		return nil, Stats{}, err
	}
	st := Summarize(recs)
	st.AttendanceRate = rate(st.Present+st.Late, st.Total)
	return recs, st, nil
}

func (s *Service) list(ctx context.Context, f Filter) ([]Record, error) {
	for name, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if _, err := schedule.ParseDate(v, s.opts.Location); err != nil {
			return nil, invalidf("%s must be YYYY-MM-DD", name)
		}
	}
	if f.From != "" && f.To != "" && f.To < f.From {
		return nil, invalidf("to must be >= from")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalidf("status must be one of present, late, absent")
	}
	return s.repo.List(ctx, f)
}

// Summarize counts records per status. AttendanceRate is left to the caller.
func Summarize(recs []Record) Stats {
	st := Stats{Total: len(recs)}
	for _, r := range recs {
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusLate:
			st.Late++
		case StatusAbsent:
			st.Absent++
		}
	}
	return st
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*100*100) / 100
}

// Location is the operational timezone used for "today".
func (s *Service) Location() *time.Location { return s.opts.Location }
