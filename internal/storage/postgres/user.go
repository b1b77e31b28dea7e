package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/jewelry-shop/internal/domain/models"
	"github.com/linemk/jewelry-shop/internal/storage"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) storage.UserStorage {
	return &userRepository{db: db}
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx, "SELECT id, name, email, phone, role, auth_provider FROM users WHERE id = $1", id)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Role, &user.AuthProvider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
