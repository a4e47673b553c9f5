package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

const (
	MinRoomPlayers   = 2
	MaxRoomPlayers   = 8
	maxRoomNameLen   = 45
	maxPasswordChars = 45
	defaultListLimit = 50
	maxListLimit     = 200
)

type RoomStore interface {
	CreateRoom(ctx context.Context, in store.NewRoom) (*models.GameRoom, error)
	GetRoomByID(ctx context.Context, roomID int64) (*models.GameRoom, error)
	ListOpenRooms(ctx context.Context, limit int) ([]models.RoomSummary, error)
}

type CreateRoomInput struct {
	Name       string `json:"game_room_name"`
	Password   string `json:"game_room_password"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
}

type RoomService struct {
	roomStore RoomStore
}

func NewRoomService(roomStore RoomStore) *RoomService {
	return &RoomService{roomStore: roomStore}
}

// CreateRoom validates the room settings and stores the room with hostID as
// host. Zero player counts default to 2 and 4.
func (s *RoomService) CreateRoom(ctx context.Context, hostID int64, in CreateRoomInput) (*models.GameRoom, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxRoomNameLen {
		return nil, invalid("room name must be 1 to %d characters", maxRoomNameLen)
	}
	if utf8.RuneCountInString(in.Password) > maxPasswordChars {
		return nil, invalid("room password must be at most %d characters", maxPasswordChars)
	}

	if in.MinPlayers == 0 {
		in.MinPlayers = MinRoomPlayers
	}
	if in.MaxPlayers == 0 {
		in.MaxPlayers = 4
	}
	if in.MinPlayers < MinRoomPlayers || in.MaxPlayers > MaxRoomPlayers || in.MinPlayers > in.MaxPlayers {
		return nil, invalid("players must satisfy %d <= min_players <= max_players <= %d", MinRoomPlayers, MaxRoomPlayers)
	}

	room, err := s.roomStore.CreateRoom(ctx, store.NewRoom{
		Name:       name,
		Password:   in.Password,
		HostUserID: hostID,
		MinPlayers: in.MinPlayers,
		MaxPlayers: in.MaxPlayers,
	})
	if err != nil {
		return nil, err
	}
	log.Infof("room %d %q created by user %d", room.ID, room.Name, hostID)
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID int64) (*models.GameRoom, error) {
	return s.roomStore.GetRoomByID(ctx, roomID)
}

func (s *RoomService) ListRooms(ctx context.Context, limit int) ([]models.RoomSummary, error) {
	return s.roomStore.ListOpenRooms(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
