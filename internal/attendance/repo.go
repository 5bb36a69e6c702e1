package attendance

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"qrattend/internal/store"
)

// PostgresRepository persists attendance records in Postgres. The table's
// UNIQUE (slot_id, teacher_id, session_date) constraint is the only arbiter
// between concurrent writers.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `
	id::text AS id, slot_id, teacher_id,
	to_char(session_date, 'YYYY-MM-DD') AS session_date,
	marked_at, status, latitude, longitude, notes, created_at`

// Find returns the record for key, or nil when none exists.
func (r *PostgresRepository) Find(ctx context.Context, key Key) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE slot_id = $1 AND teacher_id = $2 AND session_date = $3::date
	`, key.SlotID, key.TeacherID, key.SessionDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find attendance record")
	}
	return &rec, nil
}

// Insert writes a new record, returning ErrDuplicate on a unique violation.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO attendance_records
			(id, slot_id, teacher_id, session_date, marked_at, status, latitude, longitude, notes)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, rec.ID, rec.SlotID, rec.TeacherID, rec.SessionDate, rec.MarkedAt, string(rec.Status),
		rec.Latitude, rec.Longitude, rec.Notes)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, errors.Wrap(err, "insert attendance record")
	}
	return rec, nil
}

// List returns records with basic filters, newest session first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if f.TeacherID != 0 {
		args = append(args, f.TeacherID)
		clauses = append(clauses, "teacher_id = $"+strconv.Itoa(len(args)))
	}
	if f.From != "" {
		args = append(args, f.From)
		clauses = append(clauses, "session_date >= $"+strconv.Itoa(len(args))+"::date")
	}
	if f.To != "" {
		args = append(args, f.To)
		clauses = append(clauses, "session_date <= $"+strconv.Itoa(len(args))+"::date")
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY session_date DESC, marked_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	var out []Record
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errors.Wrap(err, "list attendance records")
	}
	return out, nil
}
