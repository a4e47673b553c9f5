package store

import (
	"context"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

func listRoomPlayers(ctx context.Context, db DBTX, roomID int64) ([]models.RoomPlayer, error) {
	rows, err := db.Query(ctx, `
        SELECT user_id, COALESCE(username, ''), COALESCE(game_room_seat, 0)
        FROM users
        WHERE game_room_id = $1
        ORDER BY game_room_seat NULLS LAST, user_id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.RoomPlayer
	for rows.Next() {
		var p models.RoomPlayer
		if err := rows.Scan(&p.UserID, &p.Username, &p.Seat); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// seatPlayers makes players the exact membership of a room, seated in the
// given order.
func seatPlayers(ctx context.Context, tx pgx.Tx, roomID int64, players []models.RoomPlayer) error {
	ids := make([]int64, len(players))
	seats := make([]int32, len(players))
	for i, p := range players {
		ids[i] = p.UserID
		seats[i] = int32(i)
	}

	_, err := tx.Exec(ctx, `
        UPDATE users
        SET game_room_id = NULL, game_room_seat = NULL, updated_at = now()
        WHERE game_room_id = $1 AND NOT (user_id = ANY($2))`, roomID, ids)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	_, err = tx.Exec(ctx, `
        UPDATE users u
        SET game_room_id = $1, game_room_seat = s.seat, updated_at = now()
        FROM unnest($2::bigint[], $3::int[]) AS s(user_id, seat)
        WHERE u.user_id = s.user_id
          AND (u.game_room_id IS DISTINCT FROM $1 OR u.game_room_seat IS DISTINCT FROM s.seat)`,
		roomID, ids, seats)
	return err
}

// RoomPlayers lists the users seated in a room.
func (s *RoomStore) RoomPlayers(ctx context.Context, roomID int64) ([]models.RoomPlayer, error) {
	players, err := listRoomPlayers(ctx, s.db, roomID)
	if err != nil {
		return nil, mapError(err, "room players")
	}
	return players, nil
}
