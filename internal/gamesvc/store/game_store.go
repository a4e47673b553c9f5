package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

// RoomStore persists game rooms together with their deck, pile, seating and
// cards.
type RoomStore struct {
	db DBTX
}

func NewRoomStore(db DBTX) *RoomStore {
	return &RoomStore{db: db}
}

type NewRoom struct {
	Name       string
	Password   string
	HostUserID int64
	MinPlayers int
	MaxPlayers int
}

// RoomRecord is everything needed to bring a room back into memory.
type RoomRecord struct {
	Room    *models.GameRoom
	Players []models.RoomPlayer
	Cards   []models.Card
}

// RoomSnapshot is the persisted form of a room's live state. Players are in
// seat order; Cards holds all 52 cards once the game has started.
type RoomSnapshot struct {
	RoomID           int64
	DeckID           int64
	PileID           int64
	Started          bool
	StartTime        sql.NullTime
	TurnUserID       sql.NullInt64
	SupposedRank     int
	LastPlayedCards  []int32
	LastPlayedUserID sql.NullInt64
	WinnerUserID     sql.NullInt64
	Players          []models.RoomPlayer
	Cards            []models.Card
}

const roomColumns = `
    game_room_id, deck_deck_id, game_card_pile_game_card_pile_id,
    COALESCE(game_room_password, ''), COALESCE(game_room_name, ''), game_room_host_user_id,
    COALESCE(min_players, 2), COALESCE(max_players, 8), COALESCE(game_started, FALSE),
    game_start_time, current_players_turn, COALESCE(current_supposed_rank, 1),
    last_played_cards, last_played_user_id, winner_user_id, game_room_created_at`

func scanRoom(row pgx.Row) (*models.GameRoom, error) {
	r := &models.GameRoom{}
	err := row.Scan(
		&r.ID,
		&r.DeckID,
		&r.PileID,
		&r.Password,
		&r.Name,
		&r.HostUserID,
		&r.MinPlayers,
		&r.MaxPlayers,
		&r.Started,
		&r.StartTime,
		&r.CurrentPlayersTurn,
		&r.CurrentSupposedRank,
		&r.LastPlayedCards,
		&r.LastPlayedUserID,
		&r.WinnerUserID,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRoom allocates a deck and uses its id for the pile and the room.
func (s *RoomStore) CreateRoom(ctx context.Context, in NewRoom) (*models.GameRoom, error) {
	var room *models.GameRoom
	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, `INSERT INTO deck DEFAULT VALUES RETURNING deck_id`).Scan(&id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO game_card_pile (game_card_pile_id) VALUES ($1)`, id); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
            INSERT INTO game_room (
                game_room_id, deck_deck_id, game_card_pile_game_card_pile_id,
                game_room_password, game_room_name, game_room_host_user_id,
                min_players, max_players
            )
            VALUES ($1, $1, $1, NULLIF($2, ''), $3, $4, $5, $6)
            RETURNING `+roomColumns,
			id, in.Password, in.Name, in.HostUserID, in.MinPlayers, in.MaxPlayers)

		var err error
		room, err = scanRoom(row)
		return err
	})
	if err != nil {
		return nil, mapError(err, "create room")
	}
	return room, nil
}

func (s *RoomStore) GetRoomByID(ctx context.Context, roomID int64) (*models.GameRoom, error) {
	row := s.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM game_room WHERE game_room_id = $1`, roomID)

	room, err := scanRoom(row)
	if err != nil {
		return nil, mapError(err, "get room")
	}
	return room, nil
}

// ListOpenRooms returns rooms without a winner, newest first.
func (s *RoomStore) ListOpenRooms(ctx context.Context, limit int) ([]models.RoomSummary, error) {
	rows, err := s.db.Query(ctx, `
        SELECT r.game_room_id, COALESCE(r.game_room_name, ''),
               COALESCE(r.min_players, 2), COALESCE(r.max_players, 8),
               COUNT(u.user_id), COALESCE(r.game_started, FALSE),
               r.game_room_password IS NOT NULL, COALESCE(r.game_room_host_user_id, 0)
        FROM game_room r
        LEFT JOIN users u ON u.game_room_id = r.game_room_id
        WHERE r.winner_user_id IS NULL
        GROUP BY r.game_room_id
        ORDER BY r.game_room_created_at DESC, r.game_room_id DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err, "list rooms")
	}
	defer rows.Close()

	var rooms []models.RoomSummary
	for rows.Next() {
		var r models.RoomSummary
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.MinPlayers,
			&r.MaxPlayers,
			&r.Players,
			&r.Started,
			&r.Private,
			&r.HostUserID,
		)
		if err != nil {
			return nil, mapError(err, "list rooms")
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list rooms")
	}
	return rooms, nil
}

// LoadRoom reads a room, its seated players in seat order and its cards.
func (s *RoomStore) LoadRoom(ctx context.Context, roomID int64) (*RoomRecord, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	players, err := listRoomPlayers(ctx, s.db, roomID)
	if err != nil {
		return nil, mapError(err, "load room players")
	}
	cards, err := listDeckCards(ctx, s.db, room.DeckID)
	if err != nil {
		return nil, mapError(err, "load room cards")
	}
	return &RoomRecord{Room: room, Players: players, Cards: cards}, nil
}

// SaveSnapshot overwrites the room row, its seating and its cards in one
// transaction.
func (s *RoomStore) SaveSnapshot(ctx context.Context, snap RoomSnapshot) error {
	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE game_room
            SET game_started = $2,
                game_start_time = $3,
                current_players_turn = $4,
                current_supposed_rank = $5,
                last_played_cards = $6,
                last_played_user_id = $7,
                winner_user_id = $8
            WHERE game_room_id = $1`,
			snap.RoomID, snap.Started, snap.StartTime, snap.TurnUserID, snap.SupposedRank,
			snap.LastPlayedCards, snap.LastPlayedUserID, snap.WinnerUserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		if err := seatPlayers(ctx, tx, snap.RoomID, snap.Players); err != nil {
			return err
		}
		return replaceDeckCards(ctx, tx, snap.DeckID, snap.Cards)
	})
	return mapError(err, fmt.Sprintf("save room %d", snap.RoomID))
}

// DeleteRoom removes a room with its cards, pile and deck. Members are
// unseated and the room's chat goes with it through the cascade.
func (s *RoomStore) DeleteRoom(ctx context.Context, roomID int64) error {
	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		return deleteRoom(ctx, tx, roomID)
	})
	return mapError(err, fmt.Sprintf("delete room %d", roomID))
}

// DeleteIdleRooms deletes rooms older than idle that nobody is seated in.
// Rows locked by a concurrent writer are skipped.
func (s *RoomStore) DeleteIdleRooms(ctx context.Context, idle time.Duration) ([]int64, error) {
	var deleted []int64
	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT r.game_room_id
            FROM game_room r
            WHERE r.game_room_created_at < now() - make_interval(secs => $1)
              AND NOT EXISTS (SELECT 1 FROM users u WHERE u.game_room_id = r.game_room_id)
            FOR UPDATE SKIP LOCKED`, idle.Seconds())
		if err != nil {
			return err
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}

		for _, id := range ids {
			if err := deleteRoom(ctx, tx, id); err != nil {
				return err
			}
		}
		deleted = ids
		return nil
	})
	if err != nil {
		return nil, mapError(err, "delete idle rooms")
	}
	return deleted, nil
}

func deleteRoom(ctx context.Context, tx pgx.Tx, roomID int64) error {
	var deckID, pileID int64
	err := tx.QueryRow(ctx, `
        SELECT deck_deck_id, game_card_pile_game_card_pile_id
        FROM game_room WHERE game_room_id = $1`, roomID).Scan(&deckID, &pileID)
	if err != nil {
		return err
	}

	stmts := []struct {
		sql string
		arg int64
	}{
		{`DELETE FROM card WHERE deck_deck_id = $1`, deckID},
		{`DELETE FROM card WHERE game_card_pile_game_card_pile_id = $1`, pileID},
		{`UPDATE users SET game_room_id = NULL, game_room_seat = NULL WHERE game_room_id = $1`, roomID},
		{`DELETE FROM game_room WHERE game_room_id = $1`, roomID},
		{`DELETE FROM game_card_pile WHERE game_card_pile_id = $1`, pileID},
		{`DELETE FROM deck WHERE deck_id = $1`, deckID},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(ctx, st.sql, st.arg); err != nil {
			return err
		}
	}
	return nil
}
