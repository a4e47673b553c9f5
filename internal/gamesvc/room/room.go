package room

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"math/rand"
	"time"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/gamesvc/engine"
	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

// Room owns the game of one room. Every method that touches the game runs on
// the room's own goroutine.
type Room struct {
	id      int64
	meta    *models.GameRoom
	game    *engine.Game
	names   map[int64]string
	owners  map[engine.Card]int64
	started sql.NullTime
	rng     *rand.Rand

	cfg     Config
	store   Store
	bc      Broadcaster
	archive Archiver
	forget  func(roomID, userID int64)
	onClose func(r *Room)

	cmds    chan func()
	quit    <-chan struct{}
	done    chan struct{}
	closed  bool
	window  *time.Timer
	leaving map[int64]*time.Timer
}

func (r *Room) ID() int64 {
	return r.id
}

func (r *Room) run() {
	defer close(r.done)
	defer r.stopTimers()

	if r.game.ClaimPending() {
		r.armWindow(r.game.PlaySeq())
	}

	for {
		select {
		case fn := <-r.cmds:
			fn()
			if r.closed {
				return
			}
		case <-r.quit:
			return
		}
	}
}

// call runs fn on the room goroutine and waits for its result.
func (r *Room) call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case r.cmds <- func() { reply <- fn() }:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Used by timers.
func (r *Room) post(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.done:
	}
}

// admit checks whether userID may enter and whether they would take a seat,
// without changing the room.
func (r *Room) admit(userID int64, password string) (bool, error) {
	if r.game.Seated(userID) {
		return true, nil
	}
	if r.meta.HasPassword() && subtle.ConstantTimeCompare([]byte(password), []byte(r.meta.Password)) != 1 {
		return false, ErrWrongPassword
	}
	switch r.game.Phase() {
	case engine.PhaseWaiting:
		if err := r.game.CanAdd(userID); err != nil {
			return false, err
		}
		return true, nil
	case engine.PhaseInProgress:
		return false, nil
	default:
		return false, engine.ErrGameFinished
	}
}

// closeIfEmpty stops a waiting room nobody sits in.
func (r *Room) closeIfEmpty() {
	if r.game.Phase() == engine.PhaseWaiting && r.game.PlayerCount() == 0 {
		r.close()
	}
}

func (r *Room) join(userID int64, name, socketID, password string) (bool, error) {
	membership := comm.RoomMembership{RoomId: r.id, SocketId: socketID, UserId: userID}

	if r.game.Seated(userID) {
		r.cancelDeparture(userID)
		membership.Seated = true
		r.bc.Attach(membership)
		r.sendState(socketID, userID)
		return true, nil
	}

	if r.meta.HasPassword() && subtle.ConstantTimeCompare([]byte(password), []byte(r.meta.Password)) != 1 {
		return false, ErrWrongPassword
	}

	switch r.game.Phase() {
	case engine.PhaseWaiting:
		if err := r.game.AddPlayer(userID); err != nil {
			return false, err
		}
		r.names[userID] = name
		membership.Seated = true
		r.bc.Attach(membership)
		log.Infof("room %d: user %d seated (%d/%d)", r.id, userID, r.game.PlayerCount(), r.meta.MaxPlayers)
		r.persist(false)
		r.broadcastState()
		return true, nil
	case engine.PhaseInProgress:
		// late comers watch
		r.bc.Attach(membership)
		r.sendState(socketID, 0)
		return false, nil
	default:
		return false, engine.ErrGameFinished
	}
}

func (r *Room) leave(userID int64) error {
	r.cancelDeparture(userID)

	dep, err := r.game.RemovePlayer(userID)
	if err != nil {
		return err
	}
	r.bc.Detach(comm.RoomMembership{RoomId: r.id, UserId: userID})
	r.forget(r.id, userID)
	log.Infof("room %d: user %d left, %d cards to the pile", r.id, userID, dep.CardsToPile)

	switch {
	case dep.Abandoned:
		r.abandon()
	case dep.Winner != 0:
		r.finish()
	case r.game.PlayerCount() == 0:
		r.persist(false)
		r.close()
	default:
		r.persist(false)
		r.broadcastState()
	}
	return nil
}

// disconnect gives a seated player the grace period to come back before
// they are removed.
func (r *Room) disconnect(userID int64) {
	if !r.game.Seated(userID) {
		return
	}
	if r.cfg.DisconnectGrace <= 0 {
		if err := r.leave(userID); err != nil {
			log.Errorf("room %d: remove disconnected user %d: %s", r.id, userID, err)
		}
		return
	}
	if _, pending := r.leaving[userID]; pending {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(r.cfg.DisconnectGrace, func() {
		r.post(func() {
			if r.leaving[userID] != t {
				return
			}
			delete(r.leaving, userID)
			if err := r.leave(userID); err != nil {
				log.Errorf("room %d: remove disconnected user %d: %s", r.id, userID, err)
			}
		})
	})
	r.leaving[userID] = t
}

func (r *Room) start(userID int64) error {
	if !r.game.Seated(userID) {
		return engine.ErrNotSeated
	}
	if userID != r.hostID() {
		return ErrNotHost
	}
	if err := r.game.Start(r.rng); err != nil {
		return err
	}
	r.started = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	log.Infof("room %d: game started with %d players", r.id, r.game.PlayerCount())

	r.persist(false)
	r.broadcastState()
	return nil
}

func (r *Room) play(userID int64, cardIDs []int, claimed int) error {
	cards := make([]engine.Card, len(cardIDs))
	for i, id := range cardIDs {
		cards[i] = engine.Card(id)
	}

	res, err := r.game.PlayCards(userID, cards, engine.Rank(claimed))
	if err != nil {
		if r.game.Phase() == engine.PhaseFinished {
			// accepting the pending claim ended the game
			r.finish()
		}
		return err
	}
	log.Debugf("room %d: user %d played %d as %s", r.id, userID, res.Count, res.Claimed.Label())

	r.armWindow(res.Seq)
	r.persist(false)
	r.broadcastState()
	return nil
}

func (r *Room) challenge(userID int64) error {
	res, err := r.game.Challenge(userID)
	if err != nil {
		return err
	}
	r.stopWindow()

	revealed := make([]int, len(res.Revealed))
	for i, c := range res.Revealed {
		revealed[i] = int(c)
	}
	r.bc.ToRoom(r.id, comm.TypeChallenged, comm.ChallengeOutcome{
		Challenger:  res.Challenger,
		Claimant:    res.Claimant,
		Revealed:    revealed,
		ClaimedRank: int(res.Claimed),
		Truthful:    res.Truthful,
		Taker:       res.Taker,
	})
	log.Infof("room %d: user %d challenged user %d, truthful=%t, %d cards to user %d",
		r.id, res.Challenger, res.Claimant, res.Truthful, res.PileSize, res.Taker)

	if res.Winner != 0 {
		r.finish()
		return nil
	}
	r.persist(false)
	r.broadcastState()
	return nil
}

func (r *Room) windowExpired(seq int64) {
	if !r.game.ClaimPending() || r.game.PlaySeq() != seq {
		return
	}
	winner, err := r.game.AcceptClaim()
	if err != nil {
		log.Errorf("room %d: accept claim: %s", r.id, err)
		return
	}
	if winner != 0 {
		r.finish()
		return
	}
	r.persist(false)
	r.broadcastState()
}

func (r *Room) finish() {
	st := r.game.Snapshot()
	r.stopWindow()

	r.persist(true)
	r.broadcastState()
	r.bc.ToRoom(r.id, comm.TypeWinner, comm.Winner{Winner: r.names[st.WinnerUserID]})
	log.Infof("room %d: user %d won after %d plays", r.id, st.WinnerUserID, st.PlaySeq)

	if r.archive != nil {
		r.archiveResult(st)
	}
	r.bc.Detach(comm.RoomMembership{RoomId: r.id})
	r.close()
}

func (r *Room) abandon() {
	r.broadcastState()

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()
	if err := r.store.DeleteRoom(ctx, r.id); err != nil {
		log.Errorf("room %d: delete abandoned room: %s", r.id, err)
	}
	log.Infof("room %d: abandoned", r.id)

	r.bc.Detach(comm.RoomMembership{RoomId: r.id})
	r.close()
}

func (r *Room) close() {
	r.closed = true
	r.stopTimers()
	r.onClose(r)
}

func (r *Room) archiveResult(st engine.State) {
	players := make([]models.RoomPlayer, len(st.Seats))
	for i, u := range st.Seats {
		players[i] = models.RoomPlayer{UserID: u, Username: r.names[u], Seat: i}
	}
	result := models.GameResult{
		RoomID:       r.id,
		RoomName:     r.meta.Name,
		WinnerUserID: st.WinnerUserID,
		Winner:       r.names[st.WinnerUserID],
		Players:      players,
		Plays:        st.PlaySeq,
		StartedAt:    r.started.Time,
		FinishedAt:   time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()
	if err := r.archive.Archive(ctx, result); err != nil {
		log.Errorf("room %d: archive result: %s", r.id, err)
	}
}

func (r *Room) hostID() int64 {
	if r.meta.HostUserID.Valid && r.game.Seated(r.meta.HostUserID.Int64) {
		return r.meta.HostUserID.Int64
	}
	// the host left, the first seat takes over
	seats := r.game.Seats()
	if len(seats) == 0 {
		return 0
	}
	return seats[0]
}

func (r *Room) armWindow(seq int64) {
	r.stopWindow()
	if r.cfg.ChallengeWindow <= 0 {
		return
	}
	r.window = time.AfterFunc(r.cfg.ChallengeWindow, func() {
		r.post(func() { r.windowExpired(seq) })
	})
}

func (r *Room) stopWindow() {
	if r.window != nil {
		r.window.Stop()
		r.window = nil
	}
}

func (r *Room) cancelDeparture(userID int64) {
	if t, ok := r.leaving[userID]; ok {
		t.Stop()
		delete(r.leaving, userID)
	}
}

func (r *Room) stopTimers() {
	r.stopWindow()
	for u, t := range r.leaving {
		t.Stop()
		delete(r.leaving, u)
	}
}

func (r *Room) persist(unseat bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()
	if err := r.store.SaveSnapshot(ctx, r.snapshot(unseat)); err != nil {
		log.Errorf("room %d: save snapshot: %s", r.id, err)
	}
}

// snapshot converts the game into rows. Pile cards stay owned by the last
// player who held them.
func (r *Room) snapshot(unseat bool) store.RoomSnapshot {
	st := r.game.Snapshot()
	snap := store.RoomSnapshot{
		RoomID:       r.id,
		DeckID:       r.meta.DeckID,
		PileID:       r.meta.PileID,
		Started:      st.Phase != engine.PhaseWaiting,
		StartTime:    r.started,
		SupposedRank: int(st.SupposedRank),
	}
	if st.TurnUserID != 0 {
		snap.TurnUserID = sql.NullInt64{Int64: st.TurnUserID, Valid: true}
	}
	if st.LastPlayedUserID != 0 {
		snap.LastPlayedUserID = sql.NullInt64{Int64: st.LastPlayedUserID, Valid: true}
	}
	if st.WinnerUserID != 0 {
		snap.WinnerUserID = sql.NullInt64{Int64: st.WinnerUserID, Valid: true}
	}
	for _, c := range st.LastPlayedCards {
		snap.LastPlayedCards = append(snap.LastPlayedCards, int32(c))
	}

	if !unseat {
		for i, u := range st.Seats {
			snap.Players = append(snap.Players, models.RoomPlayer{UserID: u, Username: r.names[u], Seat: i})
		}
	}

	if st.Phase == engine.PhaseWaiting {
		return snap
	}
	for _, u := range st.Seats {
		for _, c := range st.Hands[u] {
			r.owners[c] = u
			snap.Cards = append(snap.Cards, r.card(c, u, false))
		}
	}
	for _, c := range st.Pile {
		snap.Cards = append(snap.Cards, r.card(c, r.owners[c], true))
	}
	return snap
}

func (r *Room) card(c engine.Card, owner int64, inPile bool) models.Card {
	return models.Card{
		Rank:   int32(c),
		UserID: owner,
		DeckID: r.meta.DeckID,
		PileID: r.meta.PileID,
		InPile: inPile,
	}
}
