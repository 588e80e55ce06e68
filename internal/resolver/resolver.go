// Package resolver maps free-form action text onto a tagged combat intent.
// It is pure: the same text and ability list always produce the same
// pending action, and nothing here touches room state.
package resolver

import (
	"strings"
	"unicode"

	"github.com/JonathanSaleh123/boss-hunter/internal/game"
)

// Resolve interprets the submitted text against the actor's ability list.
// Text that names a known ability (full name or any distinctive word of it)
// resolves to that ability; everything else, including empty text, is a
// basic attack. Abilities are checked in sheet order so the first match wins.
func Resolve(text string, abilities []game.Ability) game.PendingAction {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)
	if lowered == "" {
		return game.PendingAction{Kind: game.ActionBasicAttack, Text: trimmed}
	}

	for _, ab := range abilities {
		if matchesAbility(lowered, ab.Name) {
			return game.PendingAction{
				Kind:        game.ActionAbility,
				AbilityName: ab.Name,
				Text:        trimmed,
			}
		}
	}
	return game.PendingAction{Kind: game.ActionBasicAttack, Text: trimmed}
}

// matchesAbility reports whether the lowered text references the ability:
// either the whole name appears as a substring, or one of the name's words
// (3+ runes, to skip "of"/"the") appears as a standalone word in the text.
func matchesAbility(loweredText, abilityName string) bool {
	name := strings.ToLower(strings.TrimSpace(abilityName))
	if name == "" {
		return false
	}
	if strings.Contains(loweredText, name) {
		return true
	}
	words := fieldsAlpha(loweredText)
	for _, part := range fieldsAlpha(name) {
		if len([]rune(part)) < 3 {
			continue
		}
		for _, w := range words {
			if w == part {
				return true
			}
		}
	}
	return false
}

// fieldsAlpha splits on anything that is not a letter or digit, so
// punctuation around a keyword never hides a match.
func fieldsAlpha(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
