package models

// Card is one row of the card table. Rank holds the card id 1..52, the
// owner is the holder, or for pile cards the player who put it there.
type Card struct {
	Rank   int32 `json:"card_rank"`
	UserID int64 `json:"user_user_id"`
	DeckID int64 `json:"deck_deck_id"`
	PileID int64 `json:"game_card_pile_game_card_pile_id"`
	InPile bool  `json:"card_in_pile"`
}
