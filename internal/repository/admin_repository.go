package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Admin is a dashboard account, not a bot user.
type Admin struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

type AdminRepository struct {
	db *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(admin *Admin) error {
	_, err := r.db.Exec(context.Background(),
		"INSERT INTO admins (username, password_hash, role) VALUES ($1, $2, $3)",
		admin.Username, admin.PasswordHash, admin.Role)
	return err
}

func (r *AdminRepository) GetByUsername(username string) (*Admin, error) {
	var admin Admin
	err := r.db.QueryRow(context.Background(),
		"SELECT id, username, password_hash, role FROM admins WHERE username = $1",
		username).Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.Role)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
