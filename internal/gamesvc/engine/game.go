package engine

import (
	"fmt"
	"math/rand"
)

// Phase is the lifecycle stage of a room's game.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
	// PhaseAbandoned is terminal: too few players remained to continue.
	PhaseAbandoned Phase = "abandoned"
)

// Step is the sub-state of an in-progress game.
type Step string

const (
	StepNone              Step = ""
	StepAwaitingPlay      Step = "awaiting_play"
	StepAwaitingChallenge Step = "awaiting_challenge"
)

const (
	MinSeats        = 2
	MaxCardsPerPlay = 4
)

// Game is the turn and claim state machine of one room. It is not safe for
// concurrent use; the room actor owns it.
type Game struct {
	minPlayers int
	maxPlayers int

	phase Phase
	step  Step

	seats []int64
	hands map[int64][]Card
	pile  []Card

	turn         int
	supposed     Rank
	lastPlayed   []Card
	lastPlayedBy int64
	lastClaim    Rank
	winner       int64
	playSeq      int64
}

// PlayResult describes an accepted play.
type PlayResult struct {
	UserID       int64
	Count        int
	Claimed      Rank
	SupposedRank Rank
	NextTurn     int64
	Seq          int64
}

// ChallengeResult describes a resolved challenge.
type ChallengeResult struct {
	Challenger int64
	Claimant   int64
	Revealed   []Card
	Claimed    Rank
	Truthful   bool
	Taker      int64
	PileSize   int
	Winner     int64
}

// Departure describes the effect of a player leaving.
type Departure struct {
	UserID        int64
	CardsToPile   int
	AcceptedClaim bool
	Abandoned     bool
	Winner        int64
}

func NewGame(minPlayers, maxPlayers int) *Game {
	if minPlayers < MinSeats {
		minPlayers = MinSeats
	}
	if maxPlayers < minPlayers {
		maxPlayers = minPlayers
	}
	if maxPlayers > DeckSize {
		maxPlayers = DeckSize
	}
	return &Game{
		minPlayers: minPlayers,
		maxPlayers: maxPlayers,
		phase:      PhaseWaiting,
		hands:      map[int64][]Card{},
		supposed:   1,
	}
}

func (g *Game) Phase() Phase { return g.phase }

func (g *Game) Step() Step { return g.step }

func (g *Game) PlaySeq() int64 { return g.playSeq }

func (g *Game) SupposedRank() Rank { return g.supposed }

func (g *Game) Winner() int64 { return g.winner }

func (g *Game) Seated(userID int64) bool {
	return g.seatOf(userID) >= 0
}

// Seats returns the seated user ids in turn order.
func (g *Game) Seats() []int64 {
	return append([]int64(nil), g.seats...)
}

func (g *Game) PlayerCount() int {
	return len(g.seats)
}

// ClaimPending reports whether the last play can still be challenged.
func (g *Game) ClaimPending() bool {
	return g.phase == PhaseInProgress && g.step == StepAwaitingChallenge
}

func (g *Game) CurrentTurn() int64 {
	if g.phase != PhaseInProgress || len(g.seats) == 0 {
		return 0
	}
	return g.seats[g.turn]
}

func (g *Game) Hand(userID int64) []Card {
	return cloneCards(g.hands[userID])
}

// CanAdd reports why AddPlayer would refuse userID, without changing the game.
func (g *Game) CanAdd(userID int64) error {
	if g.phase != PhaseWaiting {
		return ErrAlreadyStarted
	}
	if g.Seated(userID) {
		return ErrAlreadySeated
	}
	if len(g.seats) >= g.maxPlayers {
		return ErrRoomFull
	}
	return nil
}

func (g *Game) AddPlayer(userID int64) error {
	if err := g.CanAdd(userID); err != nil {
		return err
	}
	g.seats = append(g.seats, userID)
	g.hands[userID] = nil
	return nil
}

// Start deals the shuffled deck round-robin in seat order. The first seat
// plays first and must claim aces.
func (g *Game) Start(rng *rand.Rand) error {
	if g.phase != PhaseWaiting {
		return ErrAlreadyStarted
	}
	if len(g.seats) < g.minPlayers {
		return ErrNotEnoughPlayers
	}

	deck := Shuffle(NewDeck(), rng)
	hands := make(map[int64][]Card, len(g.seats))
	for i, c := range deck {
		u := g.seats[i%len(g.seats)]
		hands[u] = append(hands[u], c)
	}
	for _, u := range g.seats {
		SortCards(hands[u])
	}

	g.hands = hands
	g.pile = nil
	g.turn = 0
	g.supposed = 1
	g.lastPlayed = nil
	g.lastPlayedBy = 0
	g.lastClaim = 0
	g.winner = 0
	g.playSeq = 0
	g.phase = PhaseInProgress
	g.step = StepAwaitingPlay
	return nil
}

// PlayCards moves cards from the current player's hand onto the pile under a
// claim of the supposed rank. A pending claim is accepted first; if that ends
// the game the play is refused with ErrGameFinished.
func (g *Game) PlayCards(userID int64, cards []Card, claimed Rank) (*PlayResult, error) {
	if err := g.checkInProgress(); err != nil {
		return nil, err
	}
	seat := g.seatOf(userID)
	if seat < 0 {
		return nil, ErrNotSeated
	}
	if seat != g.turn {
		return nil, ErrOutOfTurn
	}
	if !claimed.Valid() {
		return nil, ErrInvalidRank
	}
	if claimed != g.supposed {
		return nil, ErrClaimMismatch
	}
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	if len(cards) > MaxCardsPerPlay {
		return nil, ErrTooManyCards
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return nil, ErrInvalidCard
		}
		if seen[c] {
			return nil, ErrDuplicateCard
		}
		seen[c] = true
	}
	remaining, ok := removeCards(g.hands[userID], cards)
	if !ok {
		return nil, ErrCardNotOwned
	}

	if g.step == StepAwaitingChallenge {
		g.closeWindow()
		if _, won := g.CheckWinner(); won {
			return nil, ErrGameFinished
		}
	}

	played := cloneCards(cards)
	g.hands[userID] = remaining
	g.pile = append(g.pile, played...)
	g.lastPlayed = played
	g.lastPlayedBy = userID
	g.lastClaim = claimed
	g.supposed = claimed.Next()
	g.turn = (g.turn + 1) % len(g.seats)
	g.step = StepAwaitingChallenge
	g.playSeq++

	return &PlayResult{
		UserID:       userID,
		Count:        len(played),
		Claimed:      claimed,
		SupposedRank: g.supposed,
		NextTurn:     g.seats[g.turn],
		Seq:          g.playSeq,
	}, nil
}

// Challenge disputes the last claim. A false claim sends the pile to the
// claimant, a true one to the challenger.
func (g *Game) Challenge(challengerID int64) (*ChallengeResult, error) {
	if err := g.checkInProgress(); err != nil {
		return nil, err
	}
	if !g.Seated(challengerID) {
		return nil, ErrNotSeated
	}
	if g.step != StepAwaitingChallenge || len(g.lastPlayed) == 0 {
		return nil, ErrNoActiveClaim
	}
	if challengerID == g.lastPlayedBy {
		return nil, ErrSelfChallenge
	}

	truthful := true
	for _, c := range g.lastPlayed {
		if c.Rank() != g.lastClaim {
			truthful = false
			break
		}
	}

	taker := g.lastPlayedBy
	if truthful {
		taker = challengerID
	}

	res := &ChallengeResult{
		Challenger: challengerID,
		Claimant:   g.lastPlayedBy,
		Revealed:   cloneCards(g.lastPlayed),
		Claimed:    g.lastClaim,
		Truthful:   truthful,
		Taker:      taker,
		PileSize:   len(g.pile),
	}

	hand := append(g.hands[taker], g.pile...)
	SortCards(hand)
	g.hands[taker] = hand
	g.pile = nil
	g.lastPlayed = nil
	g.step = StepAwaitingPlay

	if w, won := g.CheckWinner(); won {
		res.Winner = w
	}
	return res, nil
}

// AcceptClaim closes the challenge window without a challenge.
func (g *Game) AcceptClaim() (int64, error) {
	if err := g.checkInProgress(); err != nil {
		return 0, err
	}
	if g.step != StepAwaitingChallenge {
		return 0, ErrNoActiveClaim
	}
	g.closeWindow()
	w, _ := g.CheckWinner()
	return w, nil
}

// CheckWinner finishes the game when a seated player has no cards left and
// no claim is pending.
func (g *Game) CheckWinner() (int64, bool) {
	if g.phase == PhaseFinished {
		return g.winner, true
	}
	if g.phase != PhaseInProgress || g.step != StepAwaitingPlay {
		return 0, false
	}
	for _, u := range g.seats {
		if len(g.hands[u]) == 0 {
			g.winner = u
			g.phase = PhaseFinished
			g.step = StepNone
			return u, true
		}
	}
	return 0, false
}

// RemovePlayer takes a player out of the rotation. Mid-game their hand goes
// onto the pile; fewer than two remaining players abandons the game. A
// claimant leaving on their last cards has the claim accepted and wins.
func (g *Game) RemovePlayer(userID int64) (*Departure, error) {
	seat := g.seatOf(userID)
	if seat < 0 {
		return nil, ErrNotSeated
	}
	d := &Departure{UserID: userID}

	if g.phase != PhaseInProgress {
		g.dropSeat(seat)
		delete(g.hands, userID)
		return d, nil
	}

	if g.step == StepAwaitingChallenge && g.lastPlayedBy == userID {
		g.closeWindow()
		d.AcceptedClaim = true
		// the accepted claim may have been their last cards
		if w, won := g.CheckWinner(); won {
			d.Winner = w
			return d, nil
		}
	}

	d.CardsToPile = len(g.hands[userID])
	g.pile = append(g.pile, g.hands[userID]...)
	delete(g.hands, userID)

	g.dropSeat(seat)
	if seat < g.turn {
		g.turn--
	}
	if len(g.seats) > 0 && g.turn >= len(g.seats) {
		g.turn = 0
	}

	if len(g.seats) < MinSeats {
		g.phase = PhaseAbandoned
		g.step = StepNone
		d.Abandoned = true
		return d, nil
	}

	if w, won := g.CheckWinner(); won {
		d.Winner = w
	}
	return d, nil
}

func (g *Game) checkInProgress() error {
	switch g.phase {
	case PhaseInProgress:
		return nil
	case PhaseFinished, PhaseAbandoned:
		return ErrGameFinished
	default:
		return ErrNotInProgress
	}
}

func (g *Game) closeWindow() {
	g.lastPlayed = nil
	g.step = StepAwaitingPlay
}

func (g *Game) seatOf(userID int64) int {
	for i, u := range g.seats {
		if u == userID {
			return i
		}
	}
	return -1
}

func (g *Game) dropSeat(seat int) {
	g.seats = append(g.seats[:seat:seat], g.seats[seat+1:]...)
}

// State is a detached copy of a game, used for broadcasts and persistence.
type State struct {
	Phase            Phase
	Step             Step
	MinPlayers       int
	MaxPlayers       int
	Seats            []int64
	Hands            map[int64][]Card
	Pile             []Card
	TurnUserID       int64
	SupposedRank     Rank
	LastPlayedCards  []Card
	LastPlayedUserID int64
	LastClaim        Rank
	WinnerUserID     int64
	PlaySeq          int64
}

func (s State) HandSize(userID int64) int {
	return len(s.Hands[userID])
}

func (g *Game) Snapshot() State {
	hands := make(map[int64][]Card, len(g.hands))
	for u, h := range g.hands {
		hands[u] = cloneCards(h)
	}
	seats := make([]int64, len(g.seats))
	copy(seats, g.seats)

	return State{
		Phase:            g.phase,
		Step:             g.step,
		MinPlayers:       g.minPlayers,
		MaxPlayers:       g.maxPlayers,
		Seats:            seats,
		Hands:            hands,
		Pile:             cloneCards(g.pile),
		TurnUserID:       g.CurrentTurn(),
		SupposedRank:     g.supposed,
		LastPlayedCards:  cloneCards(g.lastPlayed),
		LastPlayedUserID: g.lastPlayedBy,
		LastClaim:        g.lastClaim,
		WinnerUserID:     g.winner,
		PlaySeq:          g.playSeq,
	}
}

// Restore rebuilds a game from persisted state. In-progress games must
// account for every card exactly once.
func Restore(s State) (*Game, error) {
	g := NewGame(s.MinPlayers, s.MaxPlayers)
	if s.Phase == "" {
		s.Phase = PhaseWaiting
	}
	g.phase = s.Phase
	g.seats = append([]int64(nil), s.Seats...)
	for _, u := range g.seats {
		g.hands[u] = cloneCards(s.Hands[u])
	}
	g.pile = cloneCards(s.Pile)
	g.lastPlayed = cloneCards(s.LastPlayedCards)
	g.lastPlayedBy = s.LastPlayedUserID
	g.winner = s.WinnerUserID
	g.playSeq = s.PlaySeq

	g.supposed = s.SupposedRank
	if !g.supposed.Valid() {
		g.supposed = 1
	}
	g.lastClaim = s.LastClaim
	if !g.lastClaim.Valid() && len(g.lastPlayed) > 0 {
		// claims always match the supposed rank, so the claim is the rank before it
		g.lastClaim = Rank((int(g.supposed)+RankCount-2)%RankCount + 1)
	}

	if g.phase != PhaseInProgress {
		return g, nil
	}

	if len(g.seats) < MinSeats {
		return nil, fmt.Errorf("%w: %d seats in progress", ErrInvalidState, len(g.seats))
	}
	g.turn = g.seatOf(s.TurnUserID)
	if g.turn < 0 {
		return nil, fmt.Errorf("%w: turn user %d is not seated", ErrInvalidState, s.TurnUserID)
	}

	seen := make(map[Card]bool, DeckSize)
	count := func(cards []Card) error {
		for _, c := range cards {
			if !c.Valid() || seen[c] {
				return fmt.Errorf("%w: card %d misplaced", ErrInvalidState, c)
			}
			seen[c] = true
		}
		return nil
	}
	for _, u := range g.seats {
		if err := count(g.hands[u]); err != nil {
			return nil, err
		}
	}
	if err := count(g.pile); err != nil {
		return nil, err
	}
	if len(seen) != DeckSize {
		// departed players' cards are on the pile, so nothing may be missing
		return nil, fmt.Errorf("%w: %d of %d cards accounted for", ErrInvalidState, len(seen), DeckSize)
	}

	g.step = StepAwaitingPlay
	if len(g.lastPlayed) > 0 {
		g.step = StepAwaitingChallenge
	}
	return g, nil
}
