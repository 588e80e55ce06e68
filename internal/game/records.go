package game

import "gorm.io/gorm"

// Battle outcomes as persisted.
const (
	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
)

// BattleRecord is the persisted summary of one finished battle. It is built
// by the room session at a terminal state and written outside the session's
// serialized path; a failed write never touches in-memory game state.
type BattleRecord struct {
	gorm.Model
	RoomID          string              `json:"room_id"`
	BossName        string              `json:"boss_name"`
	BossFinalHealth int                 `json:"boss_final_health"`
	Outcome         string              `json:"outcome"`
	DurationSeconds int                 `json:"duration_seconds"`
	TurnCount       int                 `json:"turn_count"`
	Participants    []BattleParticipant `json:"participants"`
}

func (BattleRecord) TableName() string { return "battle_records" }

// BattleParticipant is one roster entry of a persisted battle.
type BattleParticipant struct {
	gorm.Model
	BattleRecordID uint   `json:"-"`
	PlayerUUID     string `json:"player_uuid"`
	CharacterName  string `json:"character_name"`
	FinalHealth    int    `json:"final_health"`
	Survived       bool   `json:"survived"`
	DamageDealt    int    `json:"damage_dealt"`
	DamageTaken    int    `json:"damage_taken"`
}

func (BattleParticipant) TableName() string { return "battle_participants" }

// HunterStats stores aggregate results per character name for the
// leaderboard.
type HunterStats struct {
	gorm.Model
	CharacterName string `json:"character_name" gorm:"uniqueIndex"`
	BattlesFought int    `json:"battles_fought"`
	Victories     int    `json:"victories"`
	Defeats       int    `json:"defeats"`
}

func (HunterStats) TableName() string { return "hunter_stats" }

// CharacterRecord caches generated character sheets keyed by a canonical
// (name, description) key so repeated generation requests reuse one sheet.
type CharacterRecord struct {
	gorm.Model
	CharacterKey string `json:"character_key" gorm:"uniqueIndex"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	// SheetJSON holds the full generated profile as returned to clients.
	SheetJSON []byte `json:"-" gorm:"type:blob"`
	// PortraitPNG stores the 256x256 PNG portrait for this character. It is
	// filled in lazily on the first portrait request.
	PortraitPNG []byte `json:"-" gorm:"column:portrait_png;type:blob"`
}

func (CharacterRecord) TableName() string { return "character_sheet_cache" }
