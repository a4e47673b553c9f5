package service

import (
	"context"
	"strings"
	"testing"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	created map[string]string
}

func (f *fakeUsers) CreateUser(_ context.Context, username, hash string) (*models.User, error) {
	if _, ok := f.created[username]; ok {
		return nil, store.ErrDuplicate
	}
	f.created[username] = hash
	return &models.User{UserId: int64(len(f.created)), Username: username, PasswordHash: hash}, nil
}

func (f *fakeUsers) GetByID(context.Context, int64) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func TestRegisterHashesPassword(t *testing.T) {
	users := &fakeUsers{created: map[string]string{}}
	svc := NewUserService(users)
	svc.cost = bcrypt.MinCost

	u, err := svc.Register(context.Background(), "  gator_1 ", "swampy!")
	require.NoError(t, err)
	require.Equal(t, "gator_1", u.Username)
	require.NotEqual(t, "swampy!", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.created["gator_1"]), []byte("swampy!")))

	_, err = svc.Register(context.Background(), "gator_1", "swampy!")
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(&fakeUsers{created: map[string]string{}})
	svc.cost = bcrypt.MinCost

	cases := map[string][2]string{
		"short name":     {"ab", "password"},
		"bad characters": {"gator tots", "password"},
		"long name":      {strings.Repeat("g", 51), "password"},
		"short password": {"gator", "12345"},
		"long password":  {"gator", strings.Repeat("p", 73)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in[0], in[1])
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

type fakeRooms struct {
	last  store.NewRoom
	limit int
}

func (f *fakeRooms) CreateRoom(_ context.Context, in store.NewRoom) (*models.GameRoom, error) {
	f.last = in
	return &models.GameRoom{ID: 7, DeckID: 7, PileID: 7, Name: in.Name, Password: in.Password,
		MinPlayers: in.MinPlayers, MaxPlayers: in.MaxPlayers, CurrentSupposedRank: 1}, nil
}

func (f *fakeRooms) GetRoomByID(context.Context, int64) (*models.GameRoom, error) {
	return nil, store.ErrNotFound
}

func (f *fakeRooms) ListOpenRooms(_ context.Context, limit int) ([]models.RoomSummary, error) {
	f.limit = limit
	return nil, nil
}

func TestCreateRoom(t *testing.T) {
	rooms := &fakeRooms{}
	svc := NewRoomService(rooms)

	room, err := svc.CreateRoom(context.Background(), 3, CreateRoomInput{Name: " swamp "})
	require.NoError(t, err)
	assert.Equal(t, "swamp", room.Name)
	assert.Equal(t, store.NewRoom{Name: "swamp", HostUserID: 3, MinPlayers: 2, MaxPlayers: 4}, rooms.last)

	bad := []CreateRoomInput{
		{Name: ""},
		{Name: strings.Repeat("n", 46)},
		{Name: "r", Password: strings.Repeat("p", 46)},
		{Name: "r", MinPlayers: 1, MaxPlayers: 4},
		{Name: "r", MinPlayers: 5, MaxPlayers: 4},
		{Name: "r", MinPlayers: 2, MaxPlayers: 9},
	}
	for _, in := range bad {
		_, err := svc.CreateRoom(context.Background(), 3, in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestListRoomsClampsLimit(t *testing.T) {
	rooms := &fakeRooms{}
	svc := NewRoomService(rooms)

	for in, want := range map[int]int{0: 50, -1: 50, 10: 10, 1000: 200} {
		_, err := svc.ListRooms(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, want, rooms.limit)
	}
}

type fakeMessages struct {
	content string
}

func (f *fakeMessages) CreateMessage(_ context.Context, roomID, userID int64, content string) (*models.Message, error) {
	f.content = content
	return &models.Message{ID: 1, GameRoomID: roomID, UserID: userID, Content: content}, nil
}

func (f *fakeMessages) ListMessages(context.Context, int64, int64, int) ([]models.Message, error) {
	return nil, nil
}

func TestChatSend(t *testing.T) {
	msgs := &fakeMessages{}
	svc := NewChatService(msgs)

	m, err := svc.Send(context.Background(), 1, 2, "  hi all ")
	require.NoError(t, err)
	require.Equal(t, "hi all", m.Content)
	require.Equal(t, "hi all", msgs.content)

	_, err = svc.Send(context.Background(), 1, 2, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Send(context.Background(), 1, 2, strings.Repeat("x", 256))
	require.ErrorIs(t, err, ErrInvalidInput)
}
