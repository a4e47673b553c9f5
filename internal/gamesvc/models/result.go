package models

import "time"

// GameResult is the record of a finished game.
type GameResult struct {
	RoomID       int64        `json:"game_room_id" bson:"game_room_id"`
	RoomName     string       `json:"game_room_name" bson:"game_room_name"`
	WinnerUserID int64        `json:"winner_user_id" bson:"winner_user_id"`
	Winner       string       `json:"winner" bson:"winner"`
	Players      []RoomPlayer `json:"players" bson:"players"`
	Plays        int64        `json:"plays" bson:"plays"`
	StartedAt    time.Time    `json:"started_at" bson:"started_at"`
	FinishedAt   time.Time    `json:"finished_at" bson:"finished_at"`
}
