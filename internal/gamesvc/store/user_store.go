package store

import (
	"context"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `user_id, username, user_password, game_room_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.UserId,
		&u.Username,
		&u.PasswordHash,
		&u.GameRoomID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user with an already hashed password.
func (s *UserStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO users (username, user_password)
        VALUES ($1, $2)
        RETURNING `+userColumns, username, passwordHash)

	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "create user")
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)

	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "get user by username")
	}
	return u, nil
}

// Usernames resolves user ids to usernames. Unknown ids are left out.
func (s *UserStore) Usernames(ctx context.Context, ids []int64) (map[int64]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, username FROM users WHERE user_id = ANY($1)`, ids)
	if err != nil {
		return nil, mapError(err, "usernames")
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, mapError(err, "usernames")
		}
		names[id] = name
	}
	return names, mapError(rows.Err(), "usernames")
}
