package schedule

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StaticIndex serves a fixed schedule held in memory, typically loaded from a YAML file.
type StaticIndex struct {
	terms []Term
	slots map[int64]Slot
}

func NewStaticIndex(terms []Term, slots []Slot) *StaticIndex {
	idx := &StaticIndex{terms: append([]Term(nil), terms...), slots: make(map[int64]Slot, len(slots))}
	for _, s := range slots {
		idx.slots[s.ID] = s
	}
	return idx
}

type fileSchedule struct {
	Terms []Term `yaml:"terms"`
	Slots []struct {
		ID        int64  `yaml:"id"`
		TermID    int64  `yaml:"term_id"`
		Weekday   string `yaml:"weekday"`
		Start     string `yaml:"start"`
		End       string `yaml:"end"`
		Room      string `yaml:"room"`
		Subject   string `yaml:"subject"`
		Group     string `yaml:"group"`
		TeacherID int64  `yaml:"teacher_id"`
	} `yaml:"slots"`
}

// LoadFile reads a YAML schedule file.
func LoadFile(path string) (*StaticIndex, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	return Parse(buf)
}

// Parse decodes a YAML schedule document.
func Parse(buf []byte) (*StaticIndex, error) {
	var doc fileSchedule
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("parse schedule file: %w", err)
	}
	for _, t := range doc.Terms {
		if _, err := ParseDate(t.StartDate, time.UTC); err != nil {
			return nil, fmt.Errorf("term %d: %w", t.ID, err)
		}
		if _, err := ParseDate(t.EndDate, time.UTC); err != nil {
			return nil, fmt.Errorf("term %d: %w", t.ID, err)
		}
	}

	slots := make([]Slot, 0, len(doc.Slots))
	for _, s := range doc.Slots {
		wd, err := ParseWeekday(s.Weekday)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", s.ID, err)
		}
		start, err := ParseTimeOfDay(s.Start)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", s.ID, err)
		}
		end, err := ParseTimeOfDay(s.End)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", s.ID, err)
		}
		if end <= start {
			return nil, fmt.Errorf("slot %d: end %s not after start %s", s.ID, end, start)
		}
		slots = append(slots, Slot{
			ID:        s.ID,
			TermID:    s.TermID,
			Weekday:   wd,
			Start:     start,
			End:       end,
			Room:      s.Room,
			Subject:   s.Subject,
			Group:     s.Group,
			TeacherID: s.TeacherID,
		})
	}
	return NewStaticIndex(doc.Terms, slots), nil
}

// ParseWeekday accepts an English day name ("monday", "Mon") or its number (Sunday=0).
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("invalid weekday %q", s)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

func (x *StaticIndex) GetSlot(_ context.Context, id int64) (Slot, error) {
	s, ok := x.slots[id]
	if !ok {
		return Slot{}, ErrSlotNotFound
	}
	return s, nil
}

func (x *StaticIndex) ListSlots(_ context.Context, termID int64, weekday time.Weekday, teacherID int64) ([]Slot, error) {
	var out []Slot
	for _, s := range x.slots {
		if s.TermID != termID || s.Weekday != weekday {
			continue
		}
		if teacherID != 0 && s.TeacherID != teacherID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (x *StaticIndex) ActiveTerm(_ context.Context, date string) (Term, error) {
	var (
		found Term
		ok    bool
	)
	for _, t := range x.terms {
		if !t.Contains(date) {
			continue
		}
		if !ok || t.StartDate > found.StartDate {
			found, ok = t, true
		}
	}
	if !ok {
		return Term{}, ErrNoActiveTerm
	}
	return found, nil
}
