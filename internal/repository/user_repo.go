package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &User{Email: email, Name: name, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}

	if r.db.DriverName() == "postgres" {
		err := r.db.QueryRowxContext(ctx, r.db.Rebind(
			`INSERT INTO users (email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
			email, name, passwordHash, now, now,
		).Scan(&u.ID)
		if err != nil {
			return nil, err
		}
		return u, nil
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		email, name, passwordHash, now, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = ?`), email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
