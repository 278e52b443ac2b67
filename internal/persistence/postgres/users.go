package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"example.com/cesizen/internal/domain"
)

const userColumns = `id, email, username, first_name, last_name, role, is_active, password_hash, created_at, updated_at`

func scanUser(row pgx.CollectableRow) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser implements domain.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (` + userColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.pool.Exec(ctx, stmt,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.Role, user.IsActive, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	return translate(err)
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getOne(ctx, r.pool, scanUser, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetUserByEmail implements domain.UserRepository.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getOne(ctx, r.pool, scanUser, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
}

// ListUsers implements domain.UserRepository.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return list(ctx, r.pool, scanUser, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

// UpdateUser implements domain.UserRepository.
func (r *Repository) UpdateUser(ctx context.Context, user domain.User) error {
	const stmt = `UPDATE users SET email=$2, username=$3, first_name=$4, last_name=$5, role=$6, is_active=$7, password_hash=$8, updated_at=$9
        WHERE id=$1`
	return execAffecting(ctx, r.pool, "user", user.ID, stmt,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.Role, user.IsActive, user.PasswordHash, user.UpdatedAt,
	)
}

// DeleteUser implements domain.UserRepository.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return execAffecting(ctx, r.pool, "user", id, `DELETE FROM users WHERE id=$1`, id)
}
