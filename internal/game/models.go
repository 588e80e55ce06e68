package game

import (
	"errors"
	"strings"
)

// GeneralStats are the primary combat stats of a character sheet.
type GeneralStats struct {
	MaxHealth int `json:"max_health"`
	Speed     int `json:"speed"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
}

// AdvancedStats are the secondary stats. They are carried through the
// character sheet and the wire but only a subset influences combat today.
type AdvancedStats struct {
	Luck         int `json:"luck"`
	Intelligence int `json:"intelligence"`
	Agility      int `json:"agility"`
	Endurance    int `json:"endurance"`
}

type BaseStats struct {
	General         GeneralStats  `json:"general"`
	Advanced        AdvancedStats `json:"advanced"`
	TotalStatPoints int           `json:"total_stat_points"`
}

// Ability is one named move on a character sheet. The Type follows the
// character source vocabulary (Passive | Buff | Attack | Debuff).
type Ability struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Cooldown    *int   `json:"cooldown"`
}

type BackgroundInfo struct {
	Backstory   string `json:"backstory"`
	Personality string `json:"personality"`
	Voice       string `json:"voice"`
	Alignment   string `json:"alignment"`
}

// GameStats groups the stat block and ability list of a character sheet.
type GameStats struct {
	BaseStats     BaseStats `json:"base_stats"`
	Abilities     []Ability `json:"abilities"`
	StatusEffects []string  `json:"statusEffects,omitempty"`
}

// CharacterProfile is the payload a client presents on join. It is produced
// by the external character source (or hand-written) and only validated and
// normalized here; the server never generates it on the join path.
type CharacterProfile struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	BackgroundInfo BackgroundInfo `json:"background_info"`
	GameStats      GameStats      `json:"game_stats"`
}

var (
	ErrProfileMissingName  = errors.New("character profile is missing a name")
	ErrProfileMissingStats = errors.New("character profile is missing a stat block")
	ErrProfileBadHealth    = errors.New("character profile max_health must be positive")
)

// Validate checks that a profile carries the minimum a Player can be built
// from: a display name and a usable stat block. Negative stats are rejected
// with the same error as a missing block since both mean the sheet is unusable.
func (p *CharacterProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrProfileMissingName
	}
	g := p.GameStats.BaseStats.General
	if g.MaxHealth <= 0 {
		return ErrProfileBadHealth
	}
	if g.Attack < 0 || g.Defense < 0 || g.Speed < 0 {
		return ErrProfileMissingStats
	}
	return nil
}

// ActionKind is a string alias representing a player's resolved action.
// Using a dedicated type instead of plain string makes code safer and
// self-documenting.
type ActionKind string

const (
	ActionNone        ActionKind = ""
	ActionBasicAttack ActionKind = "basic_attack"
	ActionAbility     ActionKind = "ability"
	ActionPass        ActionKind = "pass"
)

// PendingAction is a player's resolved, not-yet-applied intent for the
// current round. It is stored on the Player and cleared every round.
type PendingAction struct {
	Kind        ActionKind `json:"kind"`
	AbilityName string     `json:"ability_name,omitempty"`
	Text        string     `json:"text,omitempty"`
}

// Player is the per-room runtime state of one participant. It is owned
// exclusively by the room session that created it.
type Player struct {
	ID            string
	Name          string
	Profile       CharacterProfile
	CurrentHealth int
	PendingAction *PendingAction
	HasActed      bool

	// Battle bookkeeping for the persisted record.
	DamageDealt int
	DamageTaken int
}

// NewPlayer builds a Player from a validated profile. The caller must have
// called profile.Validate first.
func NewPlayer(id string, profile CharacterProfile) *Player {
	return &Player{
		ID:            id,
		Name:          strings.TrimSpace(profile.Name),
		Profile:       profile,
		CurrentHealth: profile.GameStats.BaseStats.General.MaxHealth,
	}
}

func (p *Player) MaxHealth() int { return p.Profile.GameStats.BaseStats.General.MaxHealth }
func (p *Player) Attack() int    { return p.Profile.GameStats.BaseStats.General.Attack }
func (p *Player) Defense() int   { return p.Profile.GameStats.BaseStats.General.Defense }

// Alive is derived from current health; there is no separate flag to drift.
func (p *Player) Alive() bool { return p.CurrentHealth > 0 }

// ApplyDamage reduces current health, clamped at zero, and returns the
// amount actually applied.
func (p *Player) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > p.CurrentHealth {
		amount = p.CurrentHealth
	}
	p.CurrentHealth -= amount
	p.DamageTaken += amount
	return amount
}

// ClearRoundState drops the pending action and the acted flag between rounds.
func (p *Player) ClearRoundState() {
	p.PendingAction = nil
	p.HasActed = false
}

// ResetForRestart restores the initial stat snapshot for a new battle.
func (p *Player) ResetForRestart() {
	p.CurrentHealth = p.MaxHealth()
	p.DamageDealt = 0
	p.DamageTaken = 0
	p.ClearRoundState()
}

// BossTemplate is the immutable boss definition loaded from configuration.
type BossTemplate struct {
	Name      string `json:"name"`
	MaxHealth int    `json:"max_health"`
	Attack    int    `json:"attack"`
	Defense   int    `json:"defense"`
}

// Spawn produces a fresh runtime Boss at full health.
func (t BossTemplate) Spawn() *Boss {
	return &Boss{Template: t, CurrentHealth: t.MaxHealth}
}

// Boss is the mutable runtime snapshot of the room's single boss.
type Boss struct {
	Template      BossTemplate
	CurrentHealth int
}

func (b *Boss) Name() string   { return b.Template.Name }
func (b *Boss) MaxHealth() int { return b.Template.MaxHealth }
func (b *Boss) Attack() int    { return b.Template.Attack }
func (b *Boss) Defense() int   { return b.Template.Defense }
func (b *Boss) Alive() bool    { return b.CurrentHealth > 0 }

// Enraged reports whether the boss is below 30% of max health.
func (b *Boss) Enraged() bool {
	return b.CurrentHealth*10 < b.Template.MaxHealth*3
}

// Phase is 2 below 50% of max health, otherwise 1.
func (b *Boss) Phase() int {
	if b.CurrentHealth*2 < b.Template.MaxHealth {
		return 2
	}
	return 1
}

// ApplyDamage reduces boss health, clamped at zero, and returns the amount
// actually applied.
func (b *Boss) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > b.CurrentHealth {
		amount = b.CurrentHealth
	}
	b.CurrentHealth -= amount
	return amount
}

// Reset restores the boss to its template snapshot.
func (b *Boss) Reset() {
	b.CurrentHealth = b.Template.MaxHealth
}
