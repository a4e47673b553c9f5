package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/gatortots-services/internal/gamesvc/db/dbtest"
)

func relationExists(t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func leftoverRelations(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(), `
SELECT count(*)
FROM pg_class c
JOIN pg_namespace ns ON ns.oid = c.relnamespace
WHERE ns.nspname = current_schema()
  AND c.relkind IN ('r', 'S')
  AND c.relname <> 'schema_migrations'`).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestUpThenDownRestoresSchema(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()

	m, err := New(pool)
	require.NoError(t, err)
	require.Zero(t, leftoverRelations(t, pool))

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	require.Len(t, applied, len(m.Migrations()))

	for _, rel := range []string{"deck", "game_card_pile", "game_room", "users", "card", "message", "message_message_id_seq"} {
		require.True(t, relationExists(t, pool, rel), "%s missing after up", rel)
	}

	again, err := m.Up(ctx)
	require.NoError(t, err)
	require.Empty(t, again, "up is idempotent")

	reverted, err := m.Down(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reverted, len(m.Migrations()))
	require.Zero(t, leftoverRelations(t, pool), "down must not leave tables or sequences behind")
}

func TestMessageCascadeIsAsymmetric(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()

	m, err := New(pool)
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
INSERT INTO deck (deck_id) VALUES (1);
INSERT INTO game_card_pile (game_card_pile_id) VALUES (1);
INSERT INTO game_room (game_room_id, deck_deck_id, game_card_pile_game_card_pile_id, game_room_name)
    VALUES (1, 1, 1, 'swamp');
INSERT INTO users (user_id, username, user_password) VALUES (1, 'ally', 'x');
INSERT INTO message (message_content, message_time, user_user_id, game_room_game_room_id, username)
    VALUES ('hi', now(), 1, 1, 'ally');`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `DELETE FROM users WHERE user_id = 1`)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr), "deleting a user with messages must fail: %v", err)
	require.Equal(t, "23503", pgErr.Code)

	_, err = pool.Exec(ctx, `DELETE FROM game_room WHERE game_room_id = 1`)
	require.NoError(t, err)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM message`).Scan(&n))
	require.Zero(t, n)

	_, err = m.Down(ctx, 0)
	require.NoError(t, err)
}
