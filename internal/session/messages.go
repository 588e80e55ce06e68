package session

import "github.com/JonathanSaleh123/boss-hunter/internal/game"

// State names a phase of the room state machine. The values travel on the
// wire in game_state_change payloads.
type State string

const (
	StateIdle             State = "idle"
	StateWaiting          State = "waiting_for_actions"
	StatePlayersAttacking State = "players_attacking"
	StateBossAttacking    State = "boss_attacking"
	StateVictory          State = "victory"
	StateDefeat           State = "defeat"
)

// Terminal reports whether the state is exited only by a restart.
func (s State) Terminal() bool {
	return s == StateVictory || s == StateDefeat
}

// Server message type tags.
const (
	MsgInitialState    = "initial_state"
	MsgPlayerJoined    = "player_joined"
	MsgPlayerLeft      = "player_left"
	MsgUpdateGameState = "update_game_state"
	MsgGameStateChange = "game_state_change"
	MsgNewMessage      = "new_message"
	MsgGameRestarted   = "game_restarted"
	MsgError           = "error"
)

// Client command type tags.
const (
	CmdJoinRoom     = "join_room"
	CmdSubmitAction = "submit_action"
	CmdStartGame    = "start_game"
	CmdRestartGame  = "restart_game"
)

// ServerMessage is the envelope for every room-to-client payload.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ClientCommand is the envelope clients send over the websocket. Only the
// fields relevant to the Type are populated.
type ClientCommand struct {
	Type    string                 `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Profile *game.CharacterProfile `json:"character_profile,omitempty"`
}

// InitialStatePayload is sent to a joining connection only. It carries the
// full authoritative snapshot so late joiners render exactly what the room
// already shows, including the retained battle log.
type InitialStatePayload struct {
	SelfID                string                `json:"self_id"`
	State                 State                 `json:"state"`
	Players               []game.PlayerSnapshot `json:"players"`
	Boss                  game.BossSnapshot     `json:"boss"`
	Log                   []game.Event          `json:"log"`
	TimerSecondsRemaining int                   `json:"timer_seconds_remaining"`
}

type PlayerJoinedPayload struct {
	Player game.PlayerSnapshot `json:"player"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

// UpdateGameStatePayload carries the roster and boss after any committed
// mutation that changed them.
type UpdateGameStatePayload struct {
	Players []game.PlayerSnapshot `json:"players"`
	Boss    game.BossSnapshot     `json:"boss"`
}

type GameStateChangePayload struct {
	State                 State `json:"state"`
	TimerSecondsRemaining int   `json:"timer_seconds_remaining"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
