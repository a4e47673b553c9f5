package store

import (
	"context"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

var cardColumns = []string{
	"card_rank",
	"user_user_id",
	"deck_deck_id",
	"game_card_pile_game_card_pile_id",
	"card_in_pile",
}

func listDeckCards(ctx context.Context, db DBTX, deckID int64) ([]models.Card, error) {
	rows, err := db.Query(ctx, `
        SELECT card_rank, user_user_id, deck_deck_id, game_card_pile_game_card_pile_id, card_in_pile
        FROM card
        WHERE deck_deck_id = $1
        ORDER BY card_rank`, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.Rank, &c.UserID, &c.DeckID, &c.PileID, &c.InPile); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// replaceDeckCards swaps the stored cards of a deck for the given set.
func replaceDeckCards(ctx context.Context, tx pgx.Tx, deckID int64, cards []models.Card) error {
	if _, err := tx.Exec(ctx, `DELETE FROM card WHERE deck_deck_id = $1`, deckID); err != nil {
		return err
	}
	if len(cards) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"card"}, cardColumns,
		pgx.CopyFromSlice(len(cards), func(i int) ([]any, error) {
			c := cards[i]
			return []any{c.Rank, c.UserID, c.DeckID, c.PileID, c.InPile}, nil
		}))
	return err
}
