package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresIndex reads terms and teaching slots from Postgres.
type PostgresIndex struct {
	db *sqlx.DB
}

func NewPostgresIndex(db *sqlx.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

type slotRow struct {
	ID        int64  `db:"id"`
	TermID    int64  `db:"term_id"`
	Weekday   int    `db:"weekday"`
	StartSec  int    `db:"start_sec"`
	EndSec    int    `db:"end_sec"`
	Room      string `db:"room"`
	Subject   string `db:"subject"`
	GroupName string `db:"group_name"`
	TeacherID int64  `db:"teacher_id"`
}

func (r slotRow) toSlot() Slot {
	return Slot{
		ID:        r.ID,
		TermID:    r.TermID,
		Weekday:   time.Weekday(r.Weekday),
		Start:     TimeOfDay(r.StartSec),
		End:       TimeOfDay(r.EndSec),
		Room:      r.Room,
		Subject:   r.Subject,
		Group:     r.GroupName,
		TeacherID: r.TeacherID,
	}
}

const slotColumns = `
	id, term_id, weekday,
	EXTRACT(EPOCH FROM start_time)::int AS start_sec,
	EXTRACT(EPOCH FROM end_time)::int AS end_sec,
	room, subject, group_name, teacher_id`

func (x *PostgresIndex) GetSlot(ctx context.Context, id int64) (Slot, error) {
	var row slotRow
	err := x.db.GetContext(ctx, &row, `SELECT `+slotColumns+` FROM teaching_slots WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Slot{}, ErrSlotNotFound
		}
		return Slot{}, errors.Wrap(err, "get slot")
	}
	return row.toSlot(), nil
}

func (x *PostgresIndex) ListSlots(ctx context.Context, termID int64, weekday time.Weekday, teacherID int64) ([]Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM teaching_slots WHERE term_id = $1 AND weekday = $2`
	args := []any{termID, int(weekday)}
	if teacherID != 0 {
		query += ` AND teacher_id = $3`
		args = append(args, teacherID)
	}
	query += ` ORDER BY start_time ASC, id ASC`

	var rows []slotRow
	if err := x.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list slots")
	}
	out := make([]Slot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSlot())
	}
	return out, nil
}

func (x *PostgresIndex) ActiveTerm(ctx context.Context, date string) (Term, error) {
	var t Term
	err := x.db.GetContext(ctx, &t, `
		SELECT id, name,
			to_char(start_date, 'YYYY-MM-DD') AS start_date,
			to_char(end_date, 'YYYY-MM-DD') AS end_date
		FROM terms
		WHERE start_date <= $1::date AND end_date >= $1::date
		ORDER BY start_date DESC
		LIMIT 1
	`, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Term{}, ErrNoActiveTerm
		}
		return Term{}, errors.Wrap(err, "active term")
	}
	return t, nil
}
