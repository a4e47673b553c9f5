package models

import (
	"database/sql"
	"time"
)

// GameRoom mirrors the game_room table.
type GameRoom struct {
	ID                  int64         `json:"game_room_id"`
	DeckID              int64         `json:"deck_deck_id"`
	PileID              int64         `json:"game_card_pile_game_card_pile_id"`
	Password            string        `json:"-"`
	Name                string        `json:"game_room_name"`
	HostUserID          sql.NullInt64 `json:"-"`
	MinPlayers          int           `json:"min_players"`
	MaxPlayers          int           `json:"max_players"`
	Started             bool          `json:"game_started"`
	StartTime           sql.NullTime  `json:"-"`
	CurrentPlayersTurn  sql.NullInt64 `json:"-"`
	CurrentSupposedRank int           `json:"current_supposed_rank"`
	LastPlayedCards     []int32       `json:"-"` // never sent to clients, it reveals the bluff
	LastPlayedUserID    sql.NullInt64 `json:"-"`
	WinnerUserID        sql.NullInt64 `json:"-"`
	CreatedAt           time.Time     `json:"game_room_created_at"`
}

func (r *GameRoom) HasPassword() bool {
	return r.Password != ""
}

// RoomSummary is the lobby listing of a room.
type RoomSummary struct {
	ID         int64  `json:"game_room_id"`
	Name       string `json:"game_room_name"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	Players    int    `json:"players"`
	Started    bool   `json:"game_started"`
	Private    bool   `json:"private"`
	HostUserID int64  `json:"host_user_id"`
}
