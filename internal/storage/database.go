package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JonathanSaleh123/boss-hunter/internal/game"
)

// OpenAndMigrate opens the sqlite database and keeps the schema current via
// AutoMigrate.
func OpenAndMigrate(dataSourceName string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	err = db.AutoMigrate(
		&game.BattleRecord{},
		&game.BattleParticipant{},
		&game.HunterStats{},
		&game.CharacterRecord{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
