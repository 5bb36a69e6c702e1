package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "08:00", want: 8 * 3600},
		{in: "23:59:59", want: 23*3600 + 59*60 + 59},
		{in: " 07:05 ", want: 7*3600 + 5*60},
		{in: "24:00", wantErr: true},
		{in: "08:60", wantErr: true},
		{in: "8", wantErr: true},
		{in: "ab:cd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "08:05:00", TimeOfDay(8*3600+5*60).String())
}

func TestTimeOfDayOn(t *testing.T) {
	loc := time.FixedZone("BOT", -4*3600)
	start, err := TimeOfDay(8*3600).On("2026-03-02", loc)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))

	_, err = TimeOfDay(0).On("03/02/2026", loc)
	assert.Error(t, err)
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("BOT", -4*3600)
	date, wd := Today(time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2026-03-02", date)
	assert.Equal(t, time.Monday, wd)
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"monday": time.Monday, "Mon": time.Monday, "SUNDAY": time.Sunday, "3": time.Wednesday, "sat": time.Saturday,
	} {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "7", "-1", "lunes", "mo"} {
		_, err := ParseWeekday(in)
		assert.Error(t, err, in)
	}
}

const doc = `
terms:
  - {id: 1, name: old, start_date: "2025-08-01", end_date: "2025-12-20"}
  - {id: 2, name: current, start_date: "2026-02-01", end_date: "2026-07-31"}
  - {id: 3, name: summer, start_date: "2026-07-01", end_date: "2026-08-31"}
slots:
  - {id: 5, term_id: 2, weekday: monday, start: "10:00", end: "11:00", teacher_id: 10}
  - {id: 4, term_id: 2, weekday: monday, start: "08:00", end: "09:30", teacher_id: 10, subject: Algebra}
  - {id: 6, term_id: 2, weekday: monday, start: "08:00", end: "09:00", teacher_id: 20}
  - {id: 7, term_id: 2, weekday: 2, start: "08:00", end: "09:00", teacher_id: 10}
  - {id: 8, term_id: 1, weekday: mon, start: "08:00", end: "09:00", teacher_id: 10}
`

func TestStaticIndex(t *testing.T) {
	idx, err := Parse([]byte(doc))
	require.NoError(t, err)
	ctx := context.Background()

	slot, err := idx.GetSlot(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", slot.Subject)
	assert.Equal(t, time.Monday, slot.Weekday)
	assert.Equal(t, "09:30:00", slot.End.String())

	_, err = idx.GetSlot(ctx, 99)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	all, err := idx.ListSlots(ctx, 2, time.Monday, 0)
	require.NoError(t, err)
	ids := []int64{}
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{4, 6, 5}, ids, "start time then id")

	mine, err := idx.ListSlots(ctx, 2, time.Monday, 20)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(6), mine[0].ID)

	term, err := idx.ActiveTerm(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(2), term.ID)

	term, err = idx.ActiveTerm(ctx, "2026-07-15")
	require.NoError(t, err)
	assert.Equal(t, int64(3), term.ID, "latest starting term wins an overlap")

	term, err = idx.ActiveTerm(ctx, "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), term.ID, "bounds are inclusive")

	_, err = idx.ActiveTerm(ctx, "2026-01-15")
	assert.ErrorIs(t, err, ErrNoActiveTerm)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "terms: [",
		"bad term date": `terms: [{id: 1, start_date: "2026/02/01", end_date: "2026-07-31"}]`,
		"bad weekday":   `slots: [{id: 1, weekday: someday, start: "08:00", end: "09:00"}]`,
		"bad start":     `slots: [{id: 1, weekday: mon, start: "8am", end: "09:00"}]`,
		"end not after": `slots: [{id: 1, weekday: mon, start: "09:00", end: "09:00"}]`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadExampleFile(t *testing.T) {
	idx, err := LoadFile(filepath.Join("..", "..", "configs", "schedule.example.yaml"))
	require.NoError(t, err)
	slots, err := idx.ListSlots(context.Background(), 1, time.Monday, 10)
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
