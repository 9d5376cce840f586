package database

import (
	"context"

	"github.com/google/uuid"
)

const shiftColumns = `id, started_at, ended_at, is_active, manager_id, created_at`

func scanShift(row interface{ Scan(dest ...any) error }) (Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.IsActive, &s.ManagerID, &s.CreatedAt)
	return s, err
}

// CreateShift opens a new active shift. The shifts_one_active partial unique
// index rejects this with a unique violation if another shift is active.
func (q *Queries) CreateShift(ctx context.Context, managerID uuid.UUID) (Shift, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO shifts (manager_id) VALUES ($1)
		 RETURNING `+shiftColumns, managerID)
	return scanShift(row)
}

func (q *Queries) GetShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	return scanShift(row)
}

func (q *Queries) GetActiveShift(ctx context.Context) (Shift, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE is_active = TRUE`)
	return scanShift(row)
}

// GetActiveShiftForUpdate locks the active shift row for the duration of the
// surrounding transaction, serializing roster and stop-list mutations
// against shift close.
func (q *Queries) GetActiveShiftForUpdate(ctx context.Context) (Shift, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE is_active = TRUE FOR UPDATE`)
	return scanShift(row)
}

// CloseShift ends the shift only while it is still active; zero rows back
// means it was not the active shift.
func (q *Queries) CloseShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE shifts
		 SET is_active = FALSE, ended_at = now()
		 WHERE id = $1 AND is_active = TRUE
		 RETURNING `+shiftColumns, id)
	return scanShift(row)
}

func (q *Queries) ListShifts(ctx context.Context) ([]Shift, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+shiftColumns+` FROM shifts ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

type AddShiftStaffParams struct {
	ShiftID uuid.UUID
	UserID  uuid.UUID
	Role    string
}

func (q *Queries) AddShiftStaff(ctx context.Context, arg AddShiftStaffParams) (ShiftStaff, error) {
	var ss ShiftStaff
	err := q.db.QueryRow(ctx,
		`INSERT INTO shift_staff (shift_id, user_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, shift_id, user_id, role`,
		arg.ShiftID, arg.UserID, arg.Role).
		Scan(&ss.ID, &ss.ShiftID, &ss.UserID, &ss.Role)
	return ss, err
}

func (q *Queries) DeleteShiftStaff(ctx context.Context, shiftID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM shift_staff WHERE shift_id = $1`, shiftID)
	return err
}

// ShiftStaffMember carries the roster row joined with the user it points at.
type ShiftStaffMember struct {
	ShiftStaff
	FullName string
	Username string
}

func (q *Queries) ListShiftStaff(ctx context.Context, shiftID uuid.UUID) ([]ShiftStaffMember, error) {
	rows, err := q.db.Query(ctx,
		`SELECT ss.id, ss.shift_id, ss.user_id, ss.role, u.full_name, u.username
		 FROM shift_staff ss
		 JOIN users u ON u.id = ss.user_id
		 WHERE ss.shift_id = $1
		 ORDER BY ss.role, u.full_name`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []ShiftStaffMember
	for rows.Next() {
		var m ShiftStaffMember
		if err := rows.Scan(&m.ID, &m.ShiftID, &m.UserID, &m.Role, &m.FullName, &m.Username); err != nil {
			return nil, err
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}

type GetShiftStaffMemberParams struct {
	ShiftID uuid.UUID
	UserID  uuid.UUID
}

func (q *Queries) GetShiftStaffMember(ctx context.Context, arg GetShiftStaffMemberParams) (ShiftStaff, error) {
	var ss ShiftStaff
	err := q.db.QueryRow(ctx,
		`SELECT id, shift_id, user_id, role FROM shift_staff
		 WHERE shift_id = $1 AND user_id = $2`,
		arg.ShiftID, arg.UserID).
		Scan(&ss.ID, &ss.ShiftID, &ss.UserID, &ss.Role)
	return ss, err
}
