package session

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/JonathanSaleh123/boss-hunter/internal/combat"
	"github.com/JonathanSaleh123/boss-hunter/internal/game"
)

type fakePublisher struct {
	mu   sync.Mutex
	room []ServerMessage
	conn map[string][]ServerMessage
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{conn: map[string][]ServerMessage{}}
}

func (f *fakePublisher) PublishRoom(roomID string, msg ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.room = append(f.room, msg)
}

func (f *fakePublisher) PublishConn(connID string, msg ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conn[connID] = append(f.conn[connID], msg)
}

func (f *fakePublisher) roomMessages() []ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ServerMessage, len(f.room))
	copy(out, f.room)
	return out
}

func (f *fakePublisher) connMessages(id string) []ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ServerMessage, len(f.conn[id]))
	copy(out, f.conn[id])
	return out
}

func (f *fakePublisher) updates() []UpdateGameStatePayload {
	var out []UpdateGameStatePayload
	for _, m := range f.roomMessages() {
		if m.Type == MsgUpdateGameState {
			out = append(out, m.Data.(UpdateGameStatePayload))
		}
	}
	return out
}

type fakeRecorder struct {
	saved chan *game.BattleRecord
	stats chan string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{saved: make(chan *game.BattleRecord, 4), stats: make(chan string, 4)}
}

func (f *fakeRecorder) SaveBattleResult(record *game.BattleRecord) error {
	f.saved <- record
	return nil
}

func (f *fakeRecorder) UpdateStatsOnBattleEnd(names []string, outcome string) error {
	f.stats <- outcome
	return nil
}

func testProfile(name string, maxHealth, attack, defense int, abilities ...game.Ability) game.CharacterProfile {
	return game.CharacterProfile{
		Name: name,
		GameStats: game.GameStats{
			BaseStats: game.BaseStats{
				General: game.GeneralStats{MaxHealth: maxHealth, Attack: attack, Defense: defense, Speed: 10},
			},
			Abilities: abilities,
		},
	}
}

func testBoss(maxHealth, attack, defense int) game.BossTemplate {
	return game.BossTemplate{Name: "Gravemaw", MaxHealth: maxHealth, Attack: attack, Defense: defense}
}

// sync waits until every previously posted command has been applied by
// round-tripping the FIFO inbox.
func (s *Session) syncT(t *testing.T) RoomInfo {
	t.Helper()
	info, ok := s.Info()
	if !ok {
		t.Fatal("session closed unexpectedly")
	}
	return info
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startSession(t *testing.T, cfg Config, pub Publisher, rec BattleRecorder) *Session {
	t.Helper()
	if cfg.RoomID == "" {
		cfg.RoomID = "room-1"
	}
	if cfg.RoundTimer == 0 {
		cfg.RoundTimer = time.Hour
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	s := New(cfg, pub, rec, nil)
	t.Cleanup(s.Stop)
	return s
}

func TestJoinRejectsInvalidProfile(t *testing.T) {
	s := startSession(t, Config{Boss: testBoss(1000, 50, 10)}, newFakePublisher(), nil)
	err := s.Join("c1", game.CharacterProfile{})
	if !errors.Is(err, game.ErrProfileMissingName) {
		t.Fatalf("expected missing-name error, got %v", err)
	}

	s2 := startSession(t, Config{RoomID: "room-2", Boss: testBoss(1000, 50, 10)}, newFakePublisher(), nil)
	bad := testProfile("Ash", 0, 10, 10)
	if err := s2.Join("c1", bad); !errors.Is(err, game.ErrProfileBadHealth) {
		t.Fatalf("expected bad-health error, got %v", err)
	}
}

func TestRejectedJoinOfEmptyRoomClosesSession(t *testing.T) {
	emptied := make(chan string, 1)
	cfg := Config{RoomID: "room-1", Boss: testBoss(1000, 50, 10), RoundTimer: time.Hour, Seed: 1}
	s := New(cfg, newFakePublisher(), nil, func(roomID string) { emptied <- roomID })
	t.Cleanup(s.Stop)

	if err := s.Join("c1", game.CharacterProfile{}); err == nil {
		t.Fatal("expected join to be rejected")
	}
	select {
	case roomID := <-emptied:
		if roomID != "room-1" {
			t.Fatalf("emptied callback got room %q", roomID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session with no players was not torn down after rejected join")
	}
	if err := s.Join("c2", testProfile("Ash", 100, 10, 5)); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed after teardown, got %v", err)
	}
}

func TestJoinIsIdempotentPerConnection(t *testing.T) {
	s := startSession(t, Config{Boss: testBoss(1000, 50, 10)}, newFakePublisher(), nil)
	if err := s.Join("c1", testProfile("Ash", 100, 10, 5)); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Join("c1", testProfile("Ash", 100, 10, 5)); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	// A rejected join must not close a room that still has players.
	if info := s.syncT(t); info.Players != 1 {
		t.Fatalf("roster after duplicate join = %d players", info.Players)
	}
}

func TestLateJoinReceivesAuthoritativeSnapshot(t *testing.T) {
	pub := newFakePublisher()
	s := startSession(t, Config{Boss: testBoss(1000, 50, 10)}, pub, nil)

	if err := s.Join("a", testProfile("Ash", 100, 10, 5)); err != nil {
		t.Fatalf("join a: %v", err)
	}
	s.Start("a")
	s.syncT(t)

	if err := s.Join("b", testProfile("Brona", 120, 15, 5)); err != nil {
		t.Fatalf("join b: %v", err)
	}

	var initial *InitialStatePayload
	for _, m := range pub.connMessages("b") {
		if m.Type == MsgInitialState {
			p := m.Data.(InitialStatePayload)
			initial = &p
			break
		}
	}
	if initial == nil {
		t.Fatal("joiner did not receive initial_state")
	}
	if initial.SelfID != "b" || initial.State != StateWaiting {
		t.Fatalf("unexpected initial state: %+v", initial)
	}
	if len(initial.Players) != 2 {
		t.Fatalf("snapshot must include the joiner, got %d players", len(initial.Players))
	}
	if initial.TimerSecondsRemaining <= 0 {
		t.Fatalf("mid-round snapshot must carry a live timer, got %d", initial.TimerSecondsRemaining)
	}

	joined := 0
	for _, m := range pub.connMessages("a") {
		switch m.Type {
		case MsgPlayerJoined:
			joined++
		case MsgInitialState:
			if m.Data.(InitialStatePayload).SelfID == "b" {
				t.Fatal("existing member received the joiner's initial_state")
			}
		}
	}
	if joined != 1 {
		t.Fatalf("existing member should see exactly one player_joined, got %d", joined)
	}
}

func TestFastPathAdvancesAndStaleTimerIsNoop(t *testing.T) {
	pub := newFakePublisher()
	boss := testBoss(100000, 1, 10)
	s := startSession(t, Config{Boss: boss}, pub, nil)

	if err := s.Join("a", testProfile("Ash", 100, 50, 5)); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := s.Join("b", testProfile("Brona", 100, 50, 5)); err != nil {
		t.Fatalf("join b: %v", err)
	}
	s.Start("a")
	s.SubmitAction("a", "swing my blade")
	if info := s.syncT(t); info.State != StateWaiting {
		t.Fatalf("round must stay open with one action outstanding, state=%s", info.State)
	}
	s.SubmitAction("b", "stab it")

	info := s.syncT(t)
	if info.State != StateWaiting {
		t.Fatalf("fast path should complete the round and reopen, state=%s", info.State)
	}
	if info.BossCurrentHealth >= boss.MaxHealth {
		t.Fatal("boss took no damage over the round")
	}
	healthAfterRound := info.BossCurrentHealth

	// The original round timer fires with a stale epoch and must change nothing.
	s.post(timerCmd{epoch: 1})
	info = s.syncT(t)
	if info.State != StateWaiting || info.BossCurrentHealth != healthAfterRound {
		t.Fatalf("stale timer mutated the room: %+v", info)
	}
}

func TestTimeoutAssignsPassAction(t *testing.T) {
	pub := newFakePublisher()
	boss := testBoss(100000, 5, 10)
	s := startSession(t, Config{Boss: boss, RoundTimer: 20 * time.Millisecond}, pub, nil)

	if err := s.Join("a", testProfile("Ash", 500, 50, 5)); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start("a")

	waitFor(t, "timeout round to execute", func() bool {
		info, ok := s.Info()
		return ok && info.BossMaxHealth > 0 && anyPlayerDamaged(pub)
	})
	info := s.syncT(t)
	if info.BossCurrentHealth != boss.MaxHealth {
		t.Fatalf("passing player dealt damage: boss at %d/%d", info.BossCurrentHealth, boss.MaxHealth)
	}
}

func anyPlayerDamaged(pub *fakePublisher) bool {
	for _, u := range pub.updates() {
		for _, p := range u.Players {
			if p.CurrentHealth < p.MaxHealth {
				return true
			}
		}
	}
	return false
}

func TestDuplicateActionFirstSubmissionStands(t *testing.T) {
	pub := newFakePublisher()
	boss := testBoss(100000, 1, 0)
	const seed = 5
	s := startSession(t, Config{Boss: boss, Seed: seed}, pub, nil)

	fireball := game.Ability{Name: "Fireball Strike", Type: "Attack"}
	if err := s.Join("a", testProfile("Ash", 100, 100, 5, fireball)); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := s.Join("b", testProfile("Brona", 100, 80, 5)); err != nil {
		t.Fatalf("join b: %v", err)
	}
	s.Start("a")
	s.SubmitAction("a", "I cast fireball at the beast")
	s.SubmitAction("a", "never mind, plain hit")
	if info := s.syncT(t); info.State != StateWaiting {
		t.Fatalf("duplicate submission advanced the round, state=%s", info.State)
	}
	s.SubmitAction("b", "stab")
	info := s.syncT(t)

	// Replay the round's RNG draws: the first submission (the ability, at
	// the 1.5x multiplier) must be the one applied.
	mirror := rand.New(rand.NewSource(seed))
	want := boss.MaxHealth
	want -= combat.Damage(100, boss.Defense, combat.AbilityMultiplier, mirror)
	want -= combat.Damage(80, boss.Defense, combat.BasicAttackMultiplier, mirror)
	if info.BossCurrentHealth != want {
		t.Fatalf("boss health %d, want %d (first submission must stand)", info.BossCurrentHealth, want)
	}
}

func TestVictorySkipsBossTurnAndPersists(t *testing.T) {
	pub := newFakePublisher()
	rec := newFakeRecorder()
	s := startSession(t, Config{Boss: testBoss(10, 500, 0)}, pub, rec)

	if err := s.Join("a", testProfile("Ash", 100, 1000, 5)); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start("a")
	s.SubmitAction("a", "end it")

	info := s.syncT(t)
	if info.State != StateVictory {
		t.Fatalf("expected victory, got %s", info.State)
	}
	if info.BossCurrentHealth != 0 {
		t.Fatalf("boss health %d after victory", info.BossCurrentHealth)
	}
	for _, u := range pub.updates() {
		for _, p := range u.Players {
			if p.CurrentHealth != p.MaxHealth {
				t.Fatal("boss turn ran after the boss died")
			}
		}
	}

	// Further submissions in a terminal state are ignored.
	s.SubmitAction("a", "again")
	if info := s.syncT(t); info.State != StateVictory {
		t.Fatalf("terminal state left by submit_action: %s", info.State)
	}

	select {
	case record := <-rec.saved:
		if record.Outcome != game.OutcomeVictory || record.BossFinalHealth != 0 {
			t.Fatalf("bad record: outcome=%s bossHealth=%d", record.Outcome, record.BossFinalHealth)
		}
		if len(record.Participants) != 1 || !record.Participants[0].Survived {
			t.Fatalf("bad participants: %+v", record.Participants)
		}
		if record.Participants[0].DamageDealt != 10 {
			t.Fatalf("damage dealt should clamp to boss health, got %d", record.Participants[0].DamageDealt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("battle record was never persisted")
	}
	select {
	case outcome := <-rec.stats:
		if outcome != game.OutcomeVictory {
			t.Fatalf("stats updated with outcome %q", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hunter stats were never updated")
	}
}

func TestDefeatThenRestart(t *testing.T) {
	pub := newFakePublisher()
	rec := newFakeRecorder()
	boss := testBoss(100000, 100000, 0)
	s := startSession(t, Config{Boss: boss}, pub, rec)

	if err := s.Join("a", testProfile("Ash", 100, 10, 0)); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start("a")
	s.SubmitAction("a", "poke it")

	info := s.syncT(t)
	if info.State != StateDefeat {
		t.Fatalf("expected defeat, got %s", info.State)
	}
	select {
	case record := <-rec.saved:
		if record.Outcome != game.OutcomeDefeat {
			t.Fatalf("record outcome %q", record.Outcome)
		}
		if record.Participants[0].Survived || record.Participants[0].FinalHealth != 0 {
			t.Fatalf("bad participant after defeat: %+v", record.Participants[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("battle record was never persisted")
	}

	s.Restart("a")
	info = s.syncT(t)
	if info.State != StateIdle {
		t.Fatalf("restart must return to idle, got %s", info.State)
	}
	if info.BossCurrentHealth != boss.MaxHealth {
		t.Fatalf("boss not reset: %d/%d", info.BossCurrentHealth, boss.MaxHealth)
	}
	if info.Restarts != 1 {
		t.Fatalf("restart counter = %d", info.Restarts)
	}
	updates := pub.updates()
	last := updates[len(updates)-1]
	if last.Players[0].CurrentHealth != last.Players[0].MaxHealth {
		t.Fatalf("player not reset: %+v", last.Players[0])
	}
}

func TestRestartIgnoredOutsideTerminalStates(t *testing.T) {
	s := startSession(t, Config{Boss: testBoss(1000, 10, 0)}, newFakePublisher(), nil)
	if err := s.Join("a", testProfile("Ash", 100, 10, 0)); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start("a")
	s.Restart("a")
	if info := s.syncT(t); info.State != StateWaiting {
		t.Fatalf("restart outside terminal state changed phase to %s", info.State)
	}
}

func TestRoomDestroyedWhenRosterEmpties(t *testing.T) {
	emptied := make(chan string, 1)
	s := New(Config{RoomID: "r", Boss: testBoss(1000, 10, 0), RoundTimer: time.Hour, Seed: 1},
		newFakePublisher(), nil, func(roomID string) { emptied <- roomID })

	if err := s.Join("a", testProfile("Ash", 100, 10, 0)); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Leave("a")

	select {
	case roomID := <-emptied:
		if roomID != "r" {
			t.Fatalf("onEmpty called with %q", roomID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("empty roster did not destroy the room")
	}
	waitFor(t, "session to close", s.Closed)
	if err := s.Join("b", testProfile("Brona", 100, 10, 0)); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed after destruction, got %v", err)
	}
}

func TestLeaveOfPendingPlayerUnblocksRound(t *testing.T) {
	pub := newFakePublisher()
	boss := testBoss(100000, 1, 0)
	s := startSession(t, Config{Boss: boss}, pub, nil)

	if err := s.Join("a", testProfile("Ash", 100, 50, 5)); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := s.Join("b", testProfile("Brona", 100, 50, 5)); err != nil {
		t.Fatalf("join b: %v", err)
	}
	s.Start("a")
	s.SubmitAction("a", "attack")
	s.Leave("b")

	info := s.syncT(t)
	if info.State != StateWaiting || info.BossCurrentHealth >= boss.MaxHealth {
		t.Fatalf("leaver blocked the round: %+v", info)
	}
}

func TestDeterministicBattleReplay(t *testing.T) {
	script := func() []int {
		pub := newFakePublisher()
		s := startSession(t, Config{RoomID: "replay", Boss: testBoss(800, 30, 20), Seed: 99}, pub, nil)
		if err := s.Join("a", testProfile("Ash", 200, 60, 15)); err != nil {
			t.Fatalf("join a: %v", err)
		}
		if err := s.Join("b", testProfile("Brona", 180, 45, 25)); err != nil {
			t.Fatalf("join b: %v", err)
		}
		s.Start("a")
		for i := 0; i < 6; i++ {
			s.SubmitAction("a", "strike")
			s.SubmitAction("b", "slash")
			if info := s.syncT(t); info.State.Terminal() {
				break
			}
		}
		var healths []int
		for _, u := range pub.updates() {
			healths = append(healths, u.Boss.CurrentHealth)
			for _, p := range u.Players {
				healths = append(healths, p.CurrentHealth)
			}
		}
		return healths
	}

	first, second := script(), script()
	if len(first) != len(second) {
		t.Fatalf("replay produced different event counts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("replay diverged at observation %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestHealthStaysWithinBounds(t *testing.T) {
	pub := newFakePublisher()
	s := startSession(t, Config{Boss: testBoss(300, 500, 0), Seed: 7}, pub, nil)
	if err := s.Join("a", testProfile("Ash", 50, 40, 0)); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start("a")
	for i := 0; i < 5; i++ {
		s.SubmitAction("a", "hit")
		if info := s.syncT(t); info.State.Terminal() {
			break
		}
	}
	for _, u := range pub.updates() {
		if u.Boss.CurrentHealth < 0 || u.Boss.CurrentHealth > u.Boss.MaxHealth {
			t.Fatalf("boss health out of bounds: %+v", u.Boss)
		}
		for _, p := range u.Players {
			if p.CurrentHealth < 0 || p.CurrentHealth > p.MaxHealth {
				t.Fatalf("player health out of bounds: %+v", p)
			}
			if p.Alive != (p.CurrentHealth > 0) {
				t.Fatalf("alive flag drifted from health: %+v", p)
			}
		}
	}
}
