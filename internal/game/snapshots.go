package game

// PlayerSnapshot is the wire view of a Player. Alive is materialized so
// clients never re-derive it.
type PlayerSnapshot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CurrentHealth int       `json:"current_health"`
	MaxHealth     int       `json:"max_health"`
	Alive         bool      `json:"alive"`
	HasActed      bool      `json:"has_acted"`
	Abilities     []Ability `json:"abilities"`
}

// BossSnapshot is the wire view of the Boss with derived flags materialized.
type BossSnapshot struct {
	Name          string `json:"name"`
	CurrentHealth int    `json:"current_health"`
	MaxHealth     int    `json:"max_health"`
	Enraged       bool   `json:"enraged"`
	Phase         int    `json:"phase"`
}

// Snapshot copies a Player into its wire view.
func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		ID:            p.ID,
		Name:          p.Name,
		CurrentHealth: p.CurrentHealth,
		MaxHealth:     p.MaxHealth(),
		Alive:         p.Alive(),
		HasActed:      p.HasActed,
		Abilities:     p.Profile.GameStats.Abilities,
	}
}

// Snapshot copies the Boss into its wire view.
func (b *Boss) Snapshot() BossSnapshot {
	return BossSnapshot{
		Name:          b.Name(),
		CurrentHealth: b.CurrentHealth,
		MaxHealth:     b.MaxHealth(),
		Enraged:       b.Enraged(),
		Phase:         b.Phase(),
	}
}
