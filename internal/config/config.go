package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/JonathanSaleh123/boss-hunter/internal/game"
)

type rawConfig struct {
	Boss *struct {
		Name      string `json:"name"`
		MaxHealth int    `json:"max_health"`
		Attack    int    `json:"attack"`
		Defense   int    `json:"defense"`
	} `json:"boss"`
	RoundTimerSeconds int `json:"round_timer_seconds"`
	MaxPlayersPerRoom int `json:"max_players_per_room"`
	ChatLogCapacity   int `json:"chat_log_capacity"`
	Server            *struct {
		Address string `json:"address"`
	} `json:"server"`
	// Optional prompt templates used for character sheet and portrait
	// generation. Use the tokens {{name}} and {{description}} where those
	// values will be substituted. If omitted, default prompts are used.
	CharacterPrompt string `json:"character_prompt"`
	ImagePrompt     string `json:"image_prompt"`
}

// LoadedConfig contains the boss template, room knobs and the server
// address to bind to.
type LoadedConfig struct {
	Boss                    game.BossTemplate
	RoundTimer              time.Duration
	MaxPlayersPerRoom       int
	ChatLogCapacity         int
	ServerAddress           string
	CharacterPromptTemplate string
	ImagePromptTemplate     string
}

// LoadConfig reads the configuration file at path. It requires the `boss`
// object; everything else has defaults.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if rc.Boss == nil {
		return nil, fmt.Errorf("config file %s: missing 'boss' object", path)
	}
	if rc.Boss.Name == "" {
		return nil, fmt.Errorf("config file %s: boss entry missing 'name'", path)
	}
	if rc.Boss.MaxHealth <= 0 {
		return nil, fmt.Errorf("config file %s: boss '%s' needs a positive 'max_health'", path, rc.Boss.Name)
	}
	if rc.Boss.Attack < 0 || rc.Boss.Defense < 0 {
		return nil, fmt.Errorf("config file %s: boss '%s' has negative stats", path, rc.Boss.Name)
	}
	if rc.RoundTimerSeconds < 0 {
		return nil, fmt.Errorf("config file %s: 'round_timer_seconds' must not be negative", path)
	}
	if rc.MaxPlayersPerRoom < 0 {
		return nil, fmt.Errorf("config file %s: 'max_players_per_room' must not be negative", path)
	}

	lc := &LoadedConfig{
		Boss: game.BossTemplate{
			Name:      rc.Boss.Name,
			MaxHealth: rc.Boss.MaxHealth,
			Attack:    rc.Boss.Attack,
			Defense:   rc.Boss.Defense,
		},
		RoundTimer:              30 * time.Second,
		MaxPlayersPerRoom:       rc.MaxPlayersPerRoom,
		ChatLogCapacity:         20,
		ServerAddress:           ":8080",
		CharacterPromptTemplate: rc.CharacterPrompt,
		ImagePromptTemplate:     rc.ImagePrompt,
	}
	if rc.RoundTimerSeconds > 0 {
		lc.RoundTimer = time.Duration(rc.RoundTimerSeconds) * time.Second
	}
	if rc.ChatLogCapacity > 0 {
		lc.ChatLogCapacity = rc.ChatLogCapacity
	}
	if rc.Server != nil && rc.Server.Address != "" {
		lc.ServerAddress = rc.Server.Address
	}
	return lc, nil
}
