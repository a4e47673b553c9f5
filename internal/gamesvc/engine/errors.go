package engine

import "errors"

// Rule violations. They never change game state and are reported back to the
// acting player only.
var (
	ErrAlreadyStarted   = errors.New("game already started")
	ErrNotInProgress    = errors.New("game is not in progress")
	ErrGameFinished     = errors.New("game is finished")
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadySeated    = errors.New("player already seated")
	ErrNotSeated        = errors.New("player is not seated in this room")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrOutOfTurn        = errors.New("not your turn")
	ErrInvalidRank      = errors.New("claimed rank must be between 1 and 13")
	ErrClaimMismatch    = errors.New("claimed rank does not match the supposed rank")
	ErrNoCards          = errors.New("at least one card must be played")
	ErrTooManyCards     = errors.New("too many cards in one play")
	ErrInvalidCard      = errors.New("card id must be between 1 and 52")
	ErrDuplicateCard    = errors.New("card played twice")
	ErrCardNotOwned     = errors.New("card is not in your hand")
	ErrNoActiveClaim    = errors.New("no claim to challenge")
	ErrSelfChallenge    = errors.New("cannot challenge your own claim")
	ErrInvalidState     = errors.New("invalid game state")
)

// Code returns a stable identifier for a rule violation, used on the wire.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyStarted):
		return "ALREADY_STARTED"
	case errors.Is(err, ErrNotInProgress):
		return "NOT_IN_PROGRESS"
	case errors.Is(err, ErrGameFinished):
		return "GAME_FINISHED"
	case errors.Is(err, ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, ErrAlreadySeated):
		return "ALREADY_SEATED"
	case errors.Is(err, ErrNotSeated):
		return "NOT_SEATED"
	case errors.Is(err, ErrNotEnoughPlayers):
		return "NOT_ENOUGH_PLAYERS"
	case errors.Is(err, ErrOutOfTurn):
		return "OUT_OF_TURN"
	case errors.Is(err, ErrInvalidRank):
		return "INVALID_RANK"
	case errors.Is(err, ErrClaimMismatch):
		return "CLAIM_MISMATCH"
	case errors.Is(err, ErrNoCards):
		return "NO_CARDS"
	case errors.Is(err, ErrTooManyCards):
		return "TOO_MANY_CARDS"
	case errors.Is(err, ErrInvalidCard):
		return "INVALID_CARD"
	case errors.Is(err, ErrDuplicateCard):
		return "DUPLICATE_CARD"
	case errors.Is(err, ErrCardNotOwned):
		return "CARD_NOT_OWNED"
	case errors.Is(err, ErrNoActiveClaim):
		return "NO_ACTIVE_CLAIM"
	case errors.Is(err, ErrSelfChallenge):
		return "SELF_CHALLENGE"
	default:
		return "INTERNAL"
	}
}
