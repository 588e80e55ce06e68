package storage

import "github.com/JonathanSaleh123/boss-hunter/internal/game"

type Repository interface {
	// SaveBattleResult persists a finished battle with its participants.
	SaveBattleResult(record *game.BattleRecord) error
	// UpdateStatsOnBattleEnd adds one battle (and a victory or defeat) to
	// each named character's aggregate stats.
	UpdateStatsOnBattleEnd(characterNames []string, outcome string) error
	// GetRecentBattles returns the newest battles first.
	GetRecentBattles(limit int) ([]game.BattleRecord, error)
	// GetTopHunters orders the leaderboard by victories, then battles fought.
	GetTopHunters(limit int) ([]game.HunterStats, error)

	// Character sheet cache (lookup by canonical name+description key).
	GetCachedCharacter(key string) (*game.CharacterRecord, error)
	SaveCachedCharacter(record *game.CharacterRecord) error

	// Character portrait cache, keyed the same way as the sheet cache.
	GetCharacterPortrait(key string) ([]byte, error)
	SaveCharacterPortrait(key string, png []byte) error
}
