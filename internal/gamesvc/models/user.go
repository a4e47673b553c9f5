package models

import (
	"database/sql"
	"time"
)

// User represents the users table in the database.
type User struct {
	UserId       int64         `json:"user_id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"`
	GameRoomID   sql.NullInt64 `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
