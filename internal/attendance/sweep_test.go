package attendance

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSweeper(repo Repository) *Sweeper {
	return NewSweeper(testIndex(), repo, laPaz, log.New(io.Discard, "", 0))
}

func TestSweepCreatesAbsences(t *testing.T) {
	repo := NewMemoryRepository()
	sw := newTestSweeper(repo)
	ctx := context.Background()

	res, err := sw.Sweep(ctx, at(monday, 23, 0, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, monday, res.Date)
	assert.Equal(t, int64(1), res.TermID)
	assert.Equal(t, 3, res.Considered)
	assert.Equal(t, 3, res.Created)
	assert.Zero(t, res.Failed)

	rec, err := repo.Find(ctx, Key{SlotID: 1, TeacherID: 10, SessionDate: monday})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusAbsent, rec.Status)
	assert.True(t, rec.MarkedAt.Equal(at(monday, 9, 30, 0)))
	require.NotNil(t, rec.Notes)
	assert.Equal(t, AutoAbsenceNote, *rec.Notes)

	// Tuesday slot is untouched
	rec, err = repo.Find(ctx, Key{SlotID: 4, TeacherID: 10, SessionDate: monday})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	sw := newTestSweeper(repo)
	ctx := context.Background()

	_, err := sw.Sweep(ctx, at(monday, 23, 0, 0))
	require.NoError(t, err)
	before, err := repo.List(ctx, Filter{})
	require.NoError(t, err)

	res, err := sw.Sweep(ctx, at(monday, 23, 30, 0))
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 3, res.Skipped)

	after, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSweepSkipsUnfinishedSessions(t *testing.T) {
	tests := []struct {
		name        string
		asOf        time.Time
		wantCreated int
	}{
		{name: "before any end", asOf: at(monday, 9, 29, 59), wantCreated: 0},
		{name: "exactly at first end", asOf: at(monday, 9, 30, 0), wantCreated: 1},
		{name: "mid morning", asOf: at(monday, 10, 0, 0), wantCreated: 2},
		{name: "after last end", asOf: at(monday, 11, 30, 0), wantCreated: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			res, err := newTestSweeper(repo).Sweep(context.Background(), tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, res.Created)
			assert.Equal(t, 3-tt.wantCreated, res.Skipped)

			recs, err := repo.List(context.Background(), Filter{})
			require.NoError(t, err)
			assert.Len(t, recs, tt.wantCreated)
		})
	}
}

func TestSweepKeepsScannedSessions(t *testing.T) {
	f := newFixture(t, at(monday, 8, 5, 0))
	ctx := context.Background()
	scanned, err := f.svc.RecordScan(ctx, 10, f.token(t, 1, monday), nil)
	require.NoError(t, err)

	res, err := newTestSweeper(f.repo).Sweep(ctx, at(monday, 23, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)

	rec, err := f.repo.Find(ctx, scanned.Record.Key())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, scanned.Record.ID, rec.ID)
	assert.Equal(t, StatusLate, rec.Status)
}

func TestSweepWithoutActiveTerm(t *testing.T) {
	repo := NewMemoryRepository()
	res, err := newTestSweeper(repo).Sweep(context.Background(), at("2026-08-03", 23, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, res.TermID)
	assert.Zero(t, res.Considered)
	assert.Zero(t, res.Created)
}

// flakyRepo fails inserts for one slot.
type flakyRepo struct {
	*MemoryRepository
	failSlot int64
}

func (r *flakyRepo) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.SlotID == r.failSlot {
		return Record{}, errors.New("connection reset")
	}
	return r.MemoryRepository.Insert(ctx, rec)
}

func TestSweepContinuesAfterSlotFailure(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: NewMemoryRepository(), failSlot: 1}
	res, err := newTestSweeper(repo).Sweep(context.Background(), at(monday, 23, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Created)

	recs, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

// lateScanRepo lets a scan land between the sweep's Find and Insert.
type lateScanRepo struct {
	*MemoryRepository
}

func (r *lateScanRepo) Insert(ctx context.Context, rec Record) (Record, error) {
	scan := rec
	scan.Status = StatusLate
	scan.Notes = nil
	if _, err := r.MemoryRepository.Insert(ctx, scan); err != nil {
		return Record{}, err
	}
	return r.MemoryRepository.Insert(ctx, rec)
}

func TestSweepTreatsDuplicateAsSkipped(t *testing.T) {
	repo := &lateScanRepo{MemoryRepository: NewMemoryRepository()}
	res, err := newTestSweeper(repo).Sweep(context.Background(), at(monday, 23, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Created)
	assert.Equal(t, 3, res.Skipped)

	recs, err := repo.List(context.Background(), Filter{Status: StatusLate})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestSweepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSweeper(NewMemoryRepository()).Sweep(ctx, at(monday, 23, 0, 0))
	assert.ErrorIs(t, err, context.Canceled)
}
