package storage

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonathanSaleh123/boss-hunter/internal/game"
)

type sqliteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) SaveBattleResult(record *game.BattleRecord) error {
	return r.db.Create(record).Error
}

func (r *sqliteRepository) UpdateStatsOnBattleEnd(characterNames []string, outcome string) error {
	upsert := func(name string) error {
		var stats game.HunterStats
		if err := r.db.Where("character_name = ?", name).First(&stats).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				stats = game.HunterStats{CharacterName: name}
			} else {
				return err
			}
		}
		stats.BattlesFought++
		switch outcome {
		case game.OutcomeVictory:
			stats.Victories++
		case game.OutcomeDefeat:
			stats.Defeats++
		}
		return r.db.Save(&stats).Error
	}
	for _, name := range characterNames {
		if err := upsert(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteRepository) GetRecentBattles(limit int) ([]game.BattleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []game.BattleRecord
	err := r.db.Preload("Participants").
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetTopHunters returns the top N characters ordered by victories desc, then
// battles fought desc.
func (r *sqliteRepository) GetTopHunters(limit int) ([]game.HunterStats, error) {
	if limit <= 0 {
		limit = 10
	}
	var stats []game.HunterStats
	err := r.db.Model(&game.HunterStats{}).
		Order("victories DESC").
		Order("battles_fought DESC").
		Limit(limit).
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *sqliteRepository) GetCachedCharacter(key string) (*game.CharacterRecord, error) {
	var record game.CharacterRecord
	if err := r.db.Where("character_key = ?", key).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *sqliteRepository) SaveCachedCharacter(record *game.CharacterRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "character_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "sheet_json"}),
	}).Create(record).Error
}

func (r *sqliteRepository) GetCharacterPortrait(key string) ([]byte, error) {
	var record game.CharacterRecord
	if err := r.db.Where("character_key = ?", key).First(&record).Error; err != nil {
		return nil, err
	}
	return record.PortraitPNG, nil
}

func (r *sqliteRepository) SaveCharacterPortrait(key string, png []byte) error {
	res := r.db.Model(&game.CharacterRecord{}).
		Where("character_key = ?", key).
		Update("portrait_png", png)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Portrait requested before (or without) a sheet; keep it anyway.
		return r.db.Create(&game.CharacterRecord{CharacterKey: key, PortraitPNG: png}).Error
	}
	return nil
}
