package models

import "time"

// Message is a chat line. Username is copied from users at insert time so
// the chat renders without a join.
type Message struct {
	ID         int64     `json:"message_id"`
	Content    string    `json:"message_content"`
	Time       time.Time `json:"message_time"`
	UserID     int64     `json:"user_user_id"`
	GameRoomID int64     `json:"game_room_game_room_id"`
	Username   string    `json:"username"`
	Timestamp  time.Time `json:"timestamp"`
}
