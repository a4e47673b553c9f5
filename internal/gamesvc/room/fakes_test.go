package room

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
)

type sent struct {
	to    string
	event string
	data  any
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	events   []sent
	attached []comm.RoomMembership
	detached []comm.RoomMembership
}

func (b *fakeBroadcaster) record(to, event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sent{to: to, event: event, data: data})
}

func (b *fakeBroadcaster) ToRoom(roomID int64, event string, data any) {
	b.record(fmt.Sprintf("room:%d", roomID), event, data)
}

func (b *fakeBroadcaster) ToUser(userID int64, event string, data any) {
	b.record(fmt.Sprintf("user:%d", userID), event, data)
}

func (b *fakeBroadcaster) ToSocket(socketID string, event string, data any) {
	b.record("socket:"+socketID, event, data)
}

func (b *fakeBroadcaster) Attach(m comm.RoomMembership) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attached = append(b.attached, m)
}

func (b *fakeBroadcaster) Detach(m comm.RoomMembership) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detached = append(b.detached, m)
}

// last returns the newest event of the given type sent to to.
func (b *fakeBroadcaster) last(to, event string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].to == to && b.events[i].event == event {
			return b.events[i].data, true
		}
	}
	return nil, false
}

func (b *fakeBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (b *fakeBroadcaster) hand(userID int64) []int {
	data, ok := b.last(fmt.Sprintf("user:%d", userID), comm.TypeHand)
	if !ok {
		return nil
	}
	return data.(comm.Hand).Cards
}

func (b *fakeBroadcaster) update(roomID int64) comm.GameUpdate {
	data, _ := b.last(fmt.Sprintf("room:%d", roomID), comm.TypeUpdate)
	u, _ := data.(comm.GameUpdate)
	return u
}

type fakeStore struct {
	mu      sync.Mutex
	records map[int64]*store.RoomRecord
	saved   []store.RoomSnapshot
	deleted []int64
}

func newFakeStore(records ...*store.RoomRecord) *fakeStore {
	s := &fakeStore{records: map[int64]*store.RoomRecord{}}
	for _, rec := range records {
		s.records[rec.Room.ID] = rec
	}
	return s
}

func (s *fakeStore) LoadRoom(_ context.Context, roomID int64) (*store.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) SaveSnapshot(_ context.Context, snap store.RoomSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snap)
	return nil
}

func (s *fakeStore) DeleteRoom(_ context.Context, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, roomID)
	delete(s.records, roomID)
	return nil
}

func (s *fakeStore) lastSaved() store.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[len(s.saved)-1]
}

func (s *fakeStore) deletedRooms() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.deleted...)
}

type fakeUsers struct{}

func (fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, store.ErrNotFound
	}
	return &models.User{UserId: id, Username: fmt.Sprintf("user%d", id)}, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	results []models.GameResult
}

func (a *fakeArchive) Archive(_ context.Context, result models.GameResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	return nil
}

func (a *fakeArchive) all() []models.GameResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.GameResult(nil), a.results...)
}

func waitingRoom(id int64, password string) *store.RoomRecord {
	return &store.RoomRecord{Room: &models.GameRoom{
		ID:                  id,
		DeckID:              id,
		PileID:              id,
		Name:                fmt.Sprintf("room-%d", id),
		Password:            password,
		HostUserID:          sql.NullInt64{Int64: 1, Valid: true},
		MinPlayers:          2,
		MaxPlayers:          4,
		CurrentSupposedRank: 1,
	}}
}

// startedRoom is a two player game where user 1 holds the given cards, user 2
// holds the rest, and it is user 1's turn to claim aces.
func startedRoom(id int64, hand1 ...int32) *store.RoomRecord {
	rec := waitingRoom(id, "")
	rec.Room.Started = true
	rec.Room.CurrentPlayersTurn = sql.NullInt64{Int64: 1, Valid: true}
	rec.Players = []models.RoomPlayer{
		{UserID: 1, Username: "user1", Seat: 0},
		{UserID: 2, Username: "user2", Seat: 1},
	}

	held := map[int32]bool{}
	for _, c := range hand1 {
		held[c] = true
	}
	for c := int32(1); c <= 52; c++ {
		owner := int64(2)
		if held[c] {
			owner = 1
		}
		rec.Cards = append(rec.Cards, models.Card{Rank: c, UserID: owner, DeckID: id, PileID: id})
	}
	return rec
}
