package room

import (
	"errors"

	"github.com/avvvet/gatortots-services/internal/gamesvc/engine"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
)

var (
	ErrWrongPassword = errors.New("wrong room password")
	ErrNotHost       = errors.New("only the host can start the game")
	ErrNotInRoom     = errors.New("not in a room")
	ErrRoomClosed    = errors.New("room is closed")
)

// Code maps room, store and engine errors to the code sent in game:error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrWrongPassword):
		return "WRONG_PASSWORD"
	case errors.Is(err, ErrNotHost):
		return "NOT_HOST"
	case errors.Is(err, ErrNotInRoom):
		return "NOT_IN_ROOM"
	case errors.Is(err, ErrRoomClosed):
		return "ROOM_CLOSED"
	case errors.Is(err, store.ErrNotFound):
		return "NOT_FOUND"
	default:
		return engine.Code(err)
	}
}
