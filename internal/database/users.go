package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, username, full_name, hashed_password, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.HashedPassword, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	Username       string
	FullName       string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO users (username, full_name, hashed_password, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		arg.Username, arg.FullName, arg.HashedPassword, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// GetActiveUserWithRole is used for roster validation: the user must exist,
// be active, and hold the given role.
func (q *Queries) GetActiveUserWithRole(ctx context.Context, id uuid.UUID, role string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id = $1 AND role = $2 AND is_active = TRUE`, id, role)
	return scanUser(row)
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListAvailableStaff returns active cashiers and waiters, the pool a manager
// picks a shift roster from.
func (q *Queries) ListAvailableStaff(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE is_active = TRUE AND role IN ('CASHIER', 'WAITER')
		 ORDER BY role, full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserParams struct {
	ID       uuid.UUID
	FullName string
	Role     string
	IsActive bool
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE users
		 SET full_name = $2, role = $3, is_active = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		arg.ID, arg.FullName, arg.Role, arg.IsActive)
	return scanUser(row)
}

func (q *Queries) DeactivateUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = now()
		 WHERE id = $1 AND is_active = TRUE
		 RETURNING id`, id).Scan(&out)
	return out, err
}
