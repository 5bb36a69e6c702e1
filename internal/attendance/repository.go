package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the attendance ledger store. Insert must enforce the Key uniqueness
// and report a lost race as ErrDuplicate.
type Repository interface {
	Find(ctx context.Context, key Key) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

// MemoryRepository keeps records in process memory. It backs dev runs and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[Key]Record
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[Key]Record), now: time.Now}
}

func (m *MemoryRepository) Find(_ context.Context, key Key) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryRepository) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Key()]; exists {
		return Record{}, ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = m.now().UTC()
	m.records[rec.Key()] = rec
	return rec, nil
}

func (m *MemoryRepository) List(_ context.Context, f Filter) ([]Record, error) {
	m.mu.Lock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		if matches(rec, f) {
			out = append(out, rec)
		}
	}
	m.mu.Unlock()

	sortRecords(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(rec Record, f Filter) bool {
	if f.TeacherID != 0 && rec.TeacherID != f.TeacherID {
		return false
	}
	if f.From != "" && rec.SessionDate < f.From {
		return false
	}
	if f.To != "" && rec.SessionDate > f.To {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}

// sortRecords orders newest session first, then latest mark first.
func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SessionDate != recs[j].SessionDate {
			return recs[i].SessionDate > recs[j].SessionDate
		}
		return recs[i].MarkedAt.After(recs[j].MarkedAt)
	})
}
