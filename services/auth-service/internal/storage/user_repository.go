package storage

import (
	"context"
	"errors"

	"github.com/bookable-app/bookable/libs/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type User struct {
	ID           string
	BusinessID   string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         string
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, business_id, email, password_hash, display_name, role)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6)
	`, user.ID, user.BusinessID, user.Email, user.PasswordHash, user.DisplayName, user.Role)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(business_id::text, ''), email, password_hash, display_name, role
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.BusinessID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(business_id::text, ''), email, password_hash, display_name, role
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.BusinessID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
