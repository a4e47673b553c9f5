package store

import (
	"context"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

type MessageStore struct {
	db DBTX
}

func NewMessageStore(db DBTX) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `message_id, COALESCE(message_content, '') AS message_content,
    COALESCE(message_time, "timestamp") AS message_time,
    user_user_id, game_room_game_room_id, username, "timestamp"`

func scanMessage(row pgx.Row) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(
		&m.ID,
		&m.Content,
		&m.Time,
		&m.UserID,
		&m.GameRoomID,
		&m.Username,
		&m.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateMessage stores a chat line. The username is copied from the users
// row as it is at insert time.
func (s *MessageStore) CreateMessage(ctx context.Context, roomID, userID int64, content string) (*models.Message, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO message (message_content, message_time, user_user_id, game_room_game_room_id, username)
        SELECT $1, now(), u.user_id, $3, u.username
        FROM users u
        WHERE u.user_id = $2
        RETURNING `+messageColumns, content, userID, roomID)

	m, err := scanMessage(row)
	if err != nil {
		return nil, mapError(err, "create message")
	}
	return m, nil
}

// ListMessages returns up to limit messages of a room, oldest first, with ids
// below before when before is positive.
func (s *MessageStore) ListMessages(ctx context.Context, roomID int64, before int64, limit int) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, `
        SELECT * FROM (
            SELECT `+messageColumns+`
            FROM message
            WHERE game_room_game_room_id = $1 AND ($2 <= 0 OR message_id < $2)
            ORDER BY message_id DESC
            LIMIT $3
        ) recent
        ORDER BY message_id`, roomID, before, limit)
	if err != nil {
		return nil, mapError(err, "list messages")
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, mapError(err, "list messages")
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list messages")
	}
	return messages, nil
}
