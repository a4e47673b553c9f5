package room

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/engine"
	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

type Store interface {
	LoadRoom(ctx context.Context, roomID int64) (*store.RoomRecord, error)
	SaveSnapshot(ctx context.Context, snap store.RoomSnapshot) error
	DeleteRoom(ctx context.Context, roomID int64) error
}

type Users interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Archiver keeps the results of finished games.
type Archiver interface {
	Archive(ctx context.Context, result models.GameResult) error
}

type Config struct {
	ChallengeWindow time.Duration
	DisconnectGrace time.Duration
	StoreTimeout    time.Duration
	Seed            func() int64
}

func (c Config) withDefaults() Config {
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
	if c.Seed == nil {
		c.Seed = func() int64 { return time.Now().UnixNano() }
	}
	return c
}

type Option func(*Manager)

func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archive = a }
}

// Manager keeps one running Room per active room id and tracks which room
// each player sits in.
type Manager struct {
	cfg     Config
	store   Store
	users   Users
	bc      Broadcaster
	archive Archiver

	mu      sync.Mutex
	rooms   map[int64]*Room
	members map[int64]int64
	quit    chan struct{}
	wg      sync.WaitGroup
}

func NewManager(st Store, users Users, bc Broadcaster, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg.withDefaults(),
		store:   st,
		users:   users,
		bc:      bc,
		rooms:   map[int64]*Room{},
		members: map[int64]int64{},
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns the running room, loading it from the store first if needed.
func (m *Manager) Open(ctx context.Context, roomID int64) (*Room, error) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	m.mu.Unlock()
	if ok {
		return r, nil
	}

	rec, err := m.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	game, owners, err := restoreGame(rec)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(rec.Players))
	for _, p := range rec.Players {
		names[p.UserID] = p.Username
	}

	r = &Room{
		id:      roomID,
		meta:    rec.Room,
		game:    game,
		names:   names,
		owners:  owners,
		started: rec.Room.StartTime,
		rng:     rand.New(rand.NewSource(m.cfg.Seed())),
		cfg:     m.cfg,
		store:   m.store,
		bc:      m.bc,
		archive: m.archive,
		forget:  m.forget,
		onClose: m.release,
		cmds:    make(chan func()),
		quit:    m.quit,
		done:    make(chan struct{}),
		leaving: map[int64]*time.Timer{},
	}

	m.mu.Lock()
	if existing, ok := m.rooms[roomID]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.rooms[roomID] = r
	for _, u := range game.Seats() {
		m.members[u] = roomID
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		r.run()
	}()
	log.Infof("room %d opened in phase %s with %d players", roomID, game.Phase(), game.PlayerCount())
	return r, nil
}

// Join seats userID in the room, or attaches them as a spectator when the game
// is already running. A player seated in another room leaves it only once the
// new room has a seat for them.
func (m *Manager) Join(ctx context.Context, roomID, userID int64, socketID, password string) error {
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	r, seat, err := m.admit(ctx, roomID, userID, password)
	if err != nil {
		return err
	}

	if prev, ok := m.RoomOf(userID); ok && prev != roomID && seat {
		if err := m.Leave(ctx, userID); err != nil && !errors.Is(err, ErrNotInRoom) {
			return err
		}
	}

	var seated bool
	join := func() error {
		var err error
		seated, err = r.join(userID, user.Username, socketID, password)
		if err != nil {
			r.closeIfEmpty()
		}
		return err
	}
	err = r.call(ctx, join)
	if errors.Is(err, ErrRoomClosed) {
		// emptied and closed since it was checked
		if r, err = m.Open(ctx, roomID); err != nil {
			return err
		}
		err = r.call(ctx, join)
	}
	if err != nil {
		return err
	}
	if seated {
		m.mu.Lock()
		m.members[userID] = roomID
		m.mu.Unlock()
	}
	return nil
}

// admit opens the room and checks the join on its goroutine. A room that
// closed under us is reopened once.
func (m *Manager) admit(ctx context.Context, roomID, userID int64, password string) (*Room, bool, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var r *Room
		r, err = m.Open(ctx, roomID)
		if err != nil {
			return nil, false, err
		}
		var seat bool
		err = r.call(ctx, func() error {
			var err error
			seat, err = r.admit(userID, password)
			if err != nil {
				r.closeIfEmpty()
			}
			return err
		})
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return r, seat, nil
	}
	return nil, false, err
}

func (m *Manager) Leave(ctx context.Context, userID int64) error {
	r, err := m.roomFor(userID)
	if err != nil {
		return err
	}
	return r.call(ctx, func() error { return r.leave(userID) })
}

// Disconnect starts the grace period after a player's last socket closed.
func (m *Manager) Disconnect(ctx context.Context, userID int64) error {
	r, err := m.roomFor(userID)
	if errors.Is(err, ErrNotInRoom) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.call(ctx, func() error {
		r.disconnect(userID)
		return nil
	})
}

func (m *Manager) Start(ctx context.Context, userID int64) error {
	r, err := m.roomFor(userID)
	if err != nil {
		return err
	}
	return r.call(ctx, func() error { return r.start(userID) })
}

func (m *Manager) Play(ctx context.Context, userID int64, cards []int, claimedRank int) error {
	r, err := m.roomFor(userID)
	if err != nil {
		return err
	}
	return r.call(ctx, func() error { return r.play(userID, cards, claimedRank) })
}

func (m *Manager) Challenge(ctx context.Context, userID int64) error {
	r, err := m.roomFor(userID)
	if err != nil {
		return err
	}
	return r.call(ctx, func() error { return r.challenge(userID) })
}

// Snapshot returns the public view of a running room. ok is false when the
// room is not loaded.
func (m *Manager) Snapshot(ctx context.Context, roomID int64) (update comm.GameUpdate, ok bool, err error) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	m.mu.Unlock()
	if !ok {
		return update, false, nil
	}

	err = r.call(ctx, func() error {
		update = r.gameUpdate()
		return nil
	})
	if errors.Is(err, ErrRoomClosed) {
		return update, false, nil
	}
	return update, err == nil, err
}

func (m *Manager) RoomOf(userID int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.members[userID]
	return id, ok
}

// Close stops every room goroutine. Room state is already persisted.
func (m *Manager) Close() {
	m.mu.Lock()
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) roomFor(userID int64) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.members[userID]
	if !ok {
		return nil, ErrNotInRoom
	}
	r, ok := m.rooms[roomID]
	if !ok {
		delete(m.members, userID)
		return nil, ErrRoomClosed
	}
	return r, nil
}

func (m *Manager) forget(roomID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[userID] == roomID {
		delete(m.members, userID)
	}
}

func (m *Manager) release(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[r.id] == r {
		delete(m.rooms, r.id)
	}
	for u, id := range m.members {
		if id == r.id {
			delete(m.members, u)
		}
	}
	log.Infof("room %d closed", r.id)
}

// restoreGame rebuilds the engine from stored rows. Finished rooms are not
// reopened.
func restoreGame(rec *store.RoomRecord) (*engine.Game, map[engine.Card]int64, error) {
	room := rec.Room
	if room.WinnerUserID.Valid {
		return nil, nil, engine.ErrGameFinished
	}

	st := engine.State{
		Phase:        engine.PhaseWaiting,
		MinPlayers:   room.MinPlayers,
		MaxPlayers:   room.MaxPlayers,
		Hands:        map[int64][]engine.Card{},
		SupposedRank: engine.Rank(room.CurrentSupposedRank),
	}
	for _, p := range rec.Players {
		st.Seats = append(st.Seats, p.UserID)
	}

	owners := map[engine.Card]int64{}
	if room.Started {
		st.Phase = engine.PhaseInProgress
		st.TurnUserID = room.CurrentPlayersTurn.Int64
		st.LastPlayedUserID = room.LastPlayedUserID.Int64
		for _, c := range room.LastPlayedCards {
			st.LastPlayedCards = append(st.LastPlayedCards, engine.Card(c))
		}
		for _, c := range rec.Cards {
			card := engine.Card(c.Rank)
			owners[card] = c.UserID
			if c.InPile {
				st.Pile = append(st.Pile, card)
				continue
			}
			st.Hands[c.UserID] = append(st.Hands[c.UserID], card)
		}
		for _, hand := range st.Hands {
			engine.SortCards(hand)
		}
	}

	game, err := engine.Restore(st)
	if err != nil {
		return nil, nil, err
	}
	return game, owners, nil
}
