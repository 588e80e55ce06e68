// Package session implements the per-room battle orchestrator. Each room is
// a single serialized actor: one goroutine drains a command inbox, so joins,
// leaves, action submissions, timer firings and phase advances for a room
// never interleave. Rooms share no mutable state with each other.
package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonathanSaleh123/boss-hunter/internal/combat"
	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/game"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
	"github.com/JonathanSaleh123/boss-hunter/internal/resolver"
)

var (
	ErrRoomClosed    = errors.New("room session is closed")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("connection already joined this room")
)

// Publisher fans committed events out to the room's connections. The ws
// gateway implements it; sessions never talk to sockets directly.
type Publisher interface {
	PublishRoom(roomID string, msg ServerMessage)
	PublishConn(connID string, msg ServerMessage)
}

// BattleRecorder persists finished battles. Calls are dispatched outside the
// session's serialized path and failures never touch game state.
type BattleRecorder interface {
	SaveBattleResult(record *game.BattleRecord) error
	UpdateStatsOnBattleEnd(characterNames []string, outcome string) error
}

// Config carries the per-room knobs a Session is built with.
type Config struct {
	RoomID      string
	Boss        game.BossTemplate
	RoundTimer  time.Duration
	MaxPlayers  int // 0 = unlimited
	LogCapacity int
	// Seed fixes the battle RNG; 0 seeds from the clock.
	Seed int64
}

// RoomInfo is the registry-facing summary of one live room.
type RoomInfo struct {
	RoomID            string `json:"room_id"`
	State             State  `json:"state"`
	Players           int    `json:"players"`
	BossName          string `json:"boss_name"`
	BossCurrentHealth int    `json:"boss_current_health"`
	BossMaxHealth     int    `json:"boss_max_health"`
	Restarts          int    `json:"restarts"`
}

type command interface{ isCommand() }

type joinCmd struct {
	connID  string
	profile game.CharacterProfile
	reply   chan error
}

type leaveCmd struct{ connID string }

type actionCmd struct {
	connID string
	text   string
}

type startCmd struct{ connID string }

type restartCmd struct{ connID string }

type timerCmd struct{ epoch uint64 }

type infoCmd struct{ reply chan RoomInfo }

type stopCmd struct{}

func (joinCmd) isCommand()    {}
func (leaveCmd) isCommand()   {}
func (actionCmd) isCommand()  {}
func (startCmd) isCommand()   {}
func (restartCmd) isCommand() {}
func (timerCmd) isCommand()   {}
func (infoCmd) isCommand()    {}
func (stopCmd) isCommand()    {}

// Session is one room's actor. All fields below inbox/closed are owned by
// the run goroutine and must not be touched from outside it.
type Session struct {
	cfg    Config
	inbox  chan command
	closed chan struct{}
	once   sync.Once

	publisher Publisher
	recorder  BattleRecorder
	onEmpty   func(roomID string)

	state       State
	players     []*game.Player
	boss        *game.Boss
	log         *game.EventLog
	rng         *rand.Rand
	epoch       uint64
	deadline    time.Time
	timer       *time.Timer
	restarts    int
	turnCount   int
	battleStart time.Time
}

// New builds a Session and starts its goroutine. onEmpty is invoked exactly
// once, from inside the session, when the roster empties or the session dies.
func New(cfg Config, publisher Publisher, recorder BattleRecorder, onEmpty func(roomID string)) *Session {
	if cfg.LogCapacity < 1 {
		cfg.LogCapacity = 20
	}
	if cfg.RoundTimer <= 0 {
		cfg.RoundTimer = 30 * time.Second
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		cfg:       cfg,
		inbox:     make(chan command, 64),
		closed:    make(chan struct{}),
		publisher: publisher,
		recorder:  recorder,
		onEmpty:   onEmpty,
		state:     StateIdle,
		boss:      cfg.Boss.Spawn(),
		log:       game.NewEventLog(cfg.LogCapacity),
		rng:       rand.New(rand.NewSource(seed)),
	}
	go s.run()
	return s
}

func (s *Session) ID() string { return s.cfg.RoomID }

// Join registers a connection as a player and blocks until the session has
// processed it. The connection id doubles as the player id.
func (s *Session) Join(connID string, profile game.CharacterProfile) error {
	reply := make(chan error, 1)
	if !s.post(joinCmd{connID: connID, profile: profile, reply: reply}) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.closed:
		return ErrRoomClosed
	}
}

func (s *Session) Leave(connID string)              { s.post(leaveCmd{connID: connID}) }
func (s *Session) SubmitAction(connID, text string) { s.post(actionCmd{connID: connID, text: text}) }
func (s *Session) Start(connID string)              { s.post(startCmd{connID: connID}) }
func (s *Session) Restart(connID string)            { s.post(restartCmd{connID: connID}) }

// Stop tears the session down without waiting for the roster to empty.
func (s *Session) Stop() { s.post(stopCmd{}) }

// Info returns a point-in-time summary, serialized through the inbox.
func (s *Session) Info() (RoomInfo, bool) {
	reply := make(chan RoomInfo, 1)
	if !s.post(infoCmd{reply: reply}) {
		return RoomInfo{}, false
	}
	select {
	case info := <-reply:
		return info, true
	case <-s.closed:
		return RoomInfo{}, false
	}
}

// Closed reports whether the session goroutine has exited.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) post(c command) bool {
	select {
	case s.inbox <- c:
		return true
	case <-s.closed:
		return false
	}
}

func (s *Session) run() {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("room session panicked", fmt.Errorf("%v", r), logging.Fields{
				constants.LogFieldRoomID: s.cfg.RoomID,
				constants.LogFieldState:  string(s.state),
			})
			s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent("The hunt collapsed due to an internal error.")})
		}
		s.teardown()
	}()
	for cmd := range s.inbox {
		if s.apply(cmd) {
			return
		}
	}
}

// teardown marks the session closed and notifies the owner. Safe to call
// more than once.
func (s *Session) teardown() {
	s.once.Do(func() {
		close(s.closed)
		if s.timer != nil {
			s.timer.Stop()
		}
		if s.onEmpty != nil {
			s.onEmpty(s.cfg.RoomID)
		}
	})
}

// apply processes one inbox command. It returns true when the session must
// stop. Everything it touches is owned by the run goroutine.
func (s *Session) apply(cmd command) (stop bool) {
	switch c := cmd.(type) {
	case joinCmd:
		err := s.handleJoin(c.connID, c.profile)
		c.reply <- err
		// A room created for a join that was rejected holds no players and
		// nothing else will ever tear it down.
		return err != nil && len(s.players) == 0
	case leaveCmd:
		return s.handleLeave(c.connID)
	case actionCmd:
		s.handleAction(c.connID, c.text)
	case startCmd:
		s.handleStart(c.connID)
	case restartCmd:
		s.handleRestart(c.connID)
	case timerCmd:
		s.handleTimer(c.epoch)
	case infoCmd:
		c.reply <- s.info()
	case stopCmd:
		return true
	}
	return false
}

func (s *Session) handleJoin(connID string, profile game.CharacterProfile) error {
	if s.findPlayer(connID) != nil {
		return ErrAlreadyJoined
	}
	if s.cfg.MaxPlayers > 0 && len(s.players) >= s.cfg.MaxPlayers {
		return ErrRoomFull
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	player := game.NewPlayer(connID, profile)
	s.players = append(s.players, player)

	s.publishConn(connID, ServerMessage{Type: MsgInitialState, Data: InitialStatePayload{
		SelfID:                connID,
		State:                 s.state,
		Players:               s.playerSnapshots(),
		Boss:                  s.boss.Snapshot(),
		Log:                   s.log.Entries(),
		TimerSecondsRemaining: s.timerSecondsRemaining(),
	}})

	for _, other := range s.players {
		if other.ID != connID {
			s.publishConn(other.ID, ServerMessage{Type: MsgPlayerJoined, Data: PlayerJoinedPayload{Player: player.Snapshot()}})
		}
	}
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent(player.Name + " has joined the hunt.")})

	logging.Info("player joined room", logging.Fields{
		constants.LogFieldRoomID:   s.cfg.RoomID,
		constants.LogFieldPlayerID: connID,
		constants.LogFieldName:     player.Name,
	})
	return nil
}

func (s *Session) handleLeave(connID string) (stop bool) {
	player := s.findPlayer(connID)
	if player == nil {
		return false
	}
	for i, p := range s.players {
		if p.ID == connID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	s.publishRoom(ServerMessage{Type: MsgPlayerLeft, Data: PlayerLeftPayload{PlayerID: connID}})
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent(player.Name + " has left the hunt.")})
	logging.Info("player left room", logging.Fields{
		constants.LogFieldRoomID:   s.cfg.RoomID,
		constants.LogFieldPlayerID: connID,
	})

	if len(s.players) == 0 {
		return true
	}
	// A leaver who had not acted yet must not hold the round open.
	if s.state == StateWaiting && s.allAliveActed() {
		s.epoch++
		s.enterPlayersAttacking()
	}
	return false
}

func (s *Session) handleStart(connID string) {
	if s.state != StateIdle {
		s.logProtocolError(CmdStartGame, connID)
		return
	}
	s.battleStart = time.Now()
	s.turnCount = 0
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent("The hunt begins! " + s.boss.Name() + " appears.")})
	s.beginRound()
}

func (s *Session) handleAction(connID, text string) {
	if s.state != StateWaiting {
		s.logProtocolError(CmdSubmitAction, connID)
		return
	}
	player := s.findPlayer(connID)
	if player == nil || !player.Alive() {
		return
	}
	if player.HasActed {
		logging.Info("duplicate action ignored", logging.Fields{
			constants.LogFieldRoomID:   s.cfg.RoomID,
			constants.LogFieldPlayerID: connID,
		})
		return
	}
	intent := resolver.Resolve(text, player.Profile.GameStats.Abilities)
	player.PendingAction = &intent
	player.HasActed = true

	line := intent.Text
	if line == "" {
		line = player.Name + " readies a basic attack."
	}
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.appendEvent(player.Name, line, game.EventAction)})
	s.publishUpdate()

	if s.allAliveActed() {
		// Fast path: a later timer fire for this round is a stale epoch.
		s.epoch++
		s.enterPlayersAttacking()
	}
}

func (s *Session) handleTimer(epoch uint64) {
	if epoch != s.epoch || s.state != StateWaiting {
		return
	}
	for _, p := range s.players {
		if p.Alive() && !p.HasActed {
			p.PendingAction = &game.PendingAction{Kind: game.ActionPass}
			p.HasActed = true
		}
	}
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent("The round timer expired.")})
	s.epoch++
	s.enterPlayersAttacking()
}

func (s *Session) handleRestart(connID string) {
	if !s.state.Terminal() {
		s.logProtocolError(CmdRestartGame, connID)
		return
	}
	s.boss.Reset()
	for _, p := range s.players {
		p.ResetForRestart()
	}
	s.restarts++
	s.epoch++
	s.log.Clear()
	s.state = StateIdle

	s.publishRoom(ServerMessage{Type: MsgGameRestarted})
	s.publishUpdate()
	s.publishStateChange(0)
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent("The arena resets. " + s.boss.Name() + " awaits a new challenge.")})
}

// beginRound opens a fresh action window with a new epoch-tagged timer.
func (s *Session) beginRound() {
	s.state = StateWaiting
	s.epoch++
	s.deadline = time.Now().Add(s.cfg.RoundTimer)
	epoch := s.epoch
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.RoundTimer, func() {
		s.post(timerCmd{epoch: epoch})
	})
	s.publishStateChange(int(s.cfg.RoundTimer / time.Second))
}

// enterPlayersAttacking applies every alive player's pending action in
// roster order, then either ends the battle or hands the turn to the boss.
func (s *Session) enterPlayersAttacking() {
	s.state = StatePlayersAttacking
	s.turnCount++
	s.publishStateChange(0)

	for _, p := range s.players {
		if !p.Alive() || p.PendingAction == nil {
			continue
		}
		kind := p.PendingAction.Kind
		mult := combat.MultiplierFor(kind)
		if mult <= 0 {
			s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.systemEvent(p.Name + " hesitates and does nothing.")})
			continue
		}
		dmg := combat.Damage(p.Attack(), s.boss.Defense(), mult, s.rng)
		applied := s.boss.ApplyDamage(dmg)
		p.DamageDealt += applied

		var attackText string
		if kind == game.ActionAbility {
			attackText = p.Name + " unleashes " + p.PendingAction.AbilityName + "!"
		} else {
			attackText = p.Name + " attacks " + s.boss.Name() + "."
		}
		s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.appendEvent(p.Name, attackText, game.EventAttack)})
		s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.appendEvent(s.boss.Name(), fmt.Sprintf("%s takes %d damage.", s.boss.Name(), applied), game.EventDamage)})

		if !s.boss.Alive() {
			break
		}
	}
	for _, p := range s.players {
		p.ClearRoundState()
	}
	s.publishUpdate()

	if !s.boss.Alive() {
		s.finishBattle(game.OutcomeVictory, s.boss.Name()+" has been slain! The hunters are victorious.")
		return
	}
	s.enterBossAttacking()
}

// enterBossAttacking resolves the boss turn, then either ends the battle or
// opens the next round.
func (s *Session) enterBossAttacking() {
	s.state = StateBossAttacking
	s.publishStateChange(0)

	alive := s.alivePlayers()
	if len(alive) > 0 {
		healths := make([]int, len(alive))
		for i, p := range alive {
			healths[i] = p.CurrentHealth
		}
		target := alive[combat.SelectTargetIndex(healths, s.boss.Phase(), s.rng)]

		mult := combat.BasicAttackMultiplier
		if s.boss.Enraged() {
			mult *= combat.EnrageMultiplier
		}
		dmg := combat.Damage(s.boss.Attack(), target.Defense(), mult, s.rng)
		applied := target.ApplyDamage(dmg)

		text := fmt.Sprintf("%s strikes %s for %d damage.", s.boss.Name(), target.Name, applied)
		if s.boss.Enraged() {
			text = fmt.Sprintf("%s, enraged, savages %s for %d damage!", s.boss.Name(), target.Name, applied)
		}
		s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.appendEvent(s.boss.Name(), text, game.EventBoss)})
		if !target.Alive() {
			s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.appendEvent(s.boss.Name(), target.Name+" has fallen.", game.EventBoss)})
		}
	}
	s.publishUpdate()

	if len(s.alivePlayers()) == 0 {
		s.finishBattle(game.OutcomeDefeat, s.boss.Name()+" stands over the fallen hunters. The hunt is lost.")
		return
	}
	s.beginRound()
}

// finishBattle enters a terminal state and dispatches persistence off the
// serialized path. The record is assembled here so the goroutine never reads
// live session state.
func (s *Session) finishBattle(outcome, text string) {
	if outcome == game.OutcomeVictory {
		s.state = StateVictory
	} else {
		s.state = StateDefeat
	}
	s.publishRoom(ServerMessage{Type: MsgNewMessage, Data: s.appendEvent(s.boss.Name(), text, game.EventBoss)})
	s.publishStateChange(0)

	logging.Info("battle finished", logging.Fields{
		constants.LogFieldRoomID:  s.cfg.RoomID,
		constants.LogFieldOutcome: outcome,
	})
	if s.recorder == nil {
		return
	}

	record := &game.BattleRecord{
		RoomID:          s.cfg.RoomID,
		BossName:        s.boss.Name(),
		BossFinalHealth: s.boss.CurrentHealth,
		Outcome:         outcome,
		DurationSeconds: int(math.Round(time.Since(s.battleStart).Seconds())),
		TurnCount:       s.turnCount,
	}
	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		record.Participants = append(record.Participants, game.BattleParticipant{
			PlayerUUID:    p.ID,
			CharacterName: p.Name,
			FinalHealth:   p.CurrentHealth,
			Survived:      p.Alive(),
			DamageDealt:   p.DamageDealt,
			DamageTaken:   p.DamageTaken,
		})
		names = append(names, p.Name)
	}
	recorder := s.recorder
	roomID := s.cfg.RoomID
	go func() {
		if err := recorder.SaveBattleResult(record); err != nil {
			logging.Error("failed to persist battle record", err, logging.Fields{constants.LogFieldRoomID: roomID})
		}
		if err := recorder.UpdateStatsOnBattleEnd(names, outcome); err != nil {
			logging.Error("failed to update hunter stats", err, logging.Fields{constants.LogFieldRoomID: roomID})
		}
	}()
}

func (s *Session) findPlayer(id string) *game.Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) alivePlayers() []*game.Player {
	out := make([]*game.Player, 0, len(s.players))
	for _, p := range s.players {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) allAliveActed() bool {
	any := false
	for _, p := range s.players {
		if p.Alive() {
			any = true
			if !p.HasActed {
				return false
			}
		}
	}
	return any
}

func (s *Session) playerSnapshots() []game.PlayerSnapshot {
	out := make([]game.PlayerSnapshot, len(s.players))
	for i, p := range s.players {
		out[i] = p.Snapshot()
	}
	return out
}

func (s *Session) timerSecondsRemaining() int {
	if s.state != StateWaiting {
		return 0
	}
	remaining := int(time.Until(s.deadline).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// appendEvent records an event in the ring log and returns it for fan-out.
func (s *Session) appendEvent(author, text string, category game.EventCategory) game.Event {
	e := game.Event{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}
	s.log.Append(e)
	return e
}

func (s *Session) systemEvent(text string) game.Event {
	return s.appendEvent("System", text, game.EventSystem)
}

func (s *Session) publishRoom(msg ServerMessage) {
	if s.publisher != nil {
		s.publisher.PublishRoom(s.cfg.RoomID, msg)
	}
}

func (s *Session) publishConn(connID string, msg ServerMessage) {
	if s.publisher != nil {
		s.publisher.PublishConn(connID, msg)
	}
}

func (s *Session) publishUpdate() {
	s.publishRoom(ServerMessage{Type: MsgUpdateGameState, Data: UpdateGameStatePayload{
		Players: s.playerSnapshots(),
		Boss:    s.boss.Snapshot(),
	}})
}

func (s *Session) publishStateChange(timerSeconds int) {
	s.publishRoom(ServerMessage{Type: MsgGameStateChange, Data: GameStateChangePayload{
		State:                 s.state,
		TimerSecondsRemaining: timerSeconds,
	}})
}

func (s *Session) info() RoomInfo {
	return RoomInfo{
		RoomID:            s.cfg.RoomID,
		State:             s.state,
		Players:           len(s.players),
		BossName:          s.boss.Name(),
		BossCurrentHealth: s.boss.CurrentHealth,
		BossMaxHealth:     s.boss.MaxHealth(),
		Restarts:          s.restarts,
	}
}

func (s *Session) logProtocolError(cmd, connID string) {
	logging.Info("command ignored in current state", logging.Fields{
		constants.LogFieldRoomID:   s.cfg.RoomID,
		constants.LogFieldPlayerID: connID,
		constants.LogFieldState:    string(s.state),
		"command":                  cmd,
	})
}
