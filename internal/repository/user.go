package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByUsernameHash(hash string) (*model.User, error)
	Search(namePrefix string, limit int) ([]*model.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	query := `INSERT INTO users (id, username, username_hash, name, password_hash, rsa_public, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query, user.ID, user.Username, user.UsernameHash, user.Name, user.PasswordHash, user.RSAPublic, user.CreatedAt)
	if err != nil {
		// Check for unique constraint violation (works for both SQLite and PostgreSQL)
		errStr := err.Error()
		if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
			return ErrDuplicateUsername
		}
		return err
	}

	return nil
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.Get(user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByUsernameHash(hash string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE username_hash = $1`

	err := r.db.Get(user, query, hash)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) Search(namePrefix string, limit int) ([]*model.User, error) {
	var users []*model.User
	query := `SELECT * FROM users WHERE name LIKE $1 ORDER BY name LIMIT $2`

	err := r.db.Select(&users, query, namePrefix+"%", limit)
	if err != nil {
		return nil, err
	}

	return users, nil
}
