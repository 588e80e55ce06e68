// Package charactergen is the external character source: it turns a name
// plus a free-text description into a full character sheet via the OpenAI
// chat completions API. Results are cached in the database and concurrent
// requests for the same character are collapsed to one upstream call. The
// join path never goes through this package.
package charactergen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/dedupe"
	"github.com/JonathanSaleh123/boss-hunter/internal/game"
	"github.com/JonathanSaleh123/boss-hunter/internal/keys"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
	"github.com/JonathanSaleh123/boss-hunter/internal/storage"
)

// promptTemplate can be set at application startup to customize the sheet
// generation prompt. Use the tokens "{{name}}" and "{{description}}" where
// the character's name and description will be substituted.
var promptTemplate string

// SetPromptTemplate sets a custom prompt template. Call from main after
// loading configuration.
func SetPromptTemplate(t string) {
	promptTemplate = strings.TrimSpace(t)
}

// baseURL is a var so tests can point the client at a local server.
var baseURL = constants.OpenAIBaseURL

var httpClient = &http.Client{Timeout: 60 * time.Second}

const defaultPrompt = `Create a character sheet for a boss-hunting game. Character name: {{name}}. Description: {{description}}.
Respond with only a JSON object of this exact shape:
{"name": string, "description": string,
 "background_info": {"backstory": string, "personality": string, "voice": string, "alignment": string},
 "game_stats": {"base_stats": {"general": {"max_health": int, "speed": int, "attack": int, "defense": int},
 "advanced": {"luck": int, "intelligence": int, "agility": int, "endurance": int},
 "total_stat_points": 500},
 "abilities": [{"name": string, "type": "Passive"|"Buff"|"Attack"|"Debuff", "description": string, "cooldown": int}]}}
Distribute roughly 500 stat points. Give 3 or 4 abilities.`

// IsConfigured reports whether generation can reach OpenAI at all.
func IsConfigured() bool {
	return os.Getenv(constants.EnvOpenAIAPIKey) != ""
}

// callOpenAI invokes the chat completions API and parses the returned sheet.
func callOpenAI(name, description string) (*game.CharacterProfile, error) {
	apiKey := os.Getenv(constants.EnvOpenAIAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s not set", constants.EnvOpenAIAPIKey)
	}

	prompt := promptTemplate
	if prompt == "" {
		prompt = defaultPrompt
	}
	prompt = strings.ReplaceAll(prompt, "{{name}}", name)
	prompt = strings.ReplaceAll(prompt, "{{description}}", description)

	payload := map[string]interface{}{
		"model": constants.OpenAIChatModel,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a character sheet generator for a multiplayer boss-hunting game. You respond with JSON only."},
			{"role": "user", "content": prompt},
		},
		"max_completion_tokens": 3100,
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", baseURL+constants.OpenAIChatCompletionsPath, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+apiKey)
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai error: %d %s", resp.StatusCode, string(body))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	raw := extractJSON(out.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in OpenAI response")
	}
	var profile game.CharacterProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("malformed character sheet: %w", err)
	}
	if strings.TrimSpace(profile.Name) == "" {
		profile.Name = name
	}
	if strings.TrimSpace(profile.Description) == "" {
		profile.Description = description
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("generated sheet is unusable: %w", err)
	}
	return &profile, nil
}

// extractJSON returns the outermost JSON object in the text, tolerating
// markdown code fences around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// Generate returns the character sheet for (name, description), serving from
// the DB cache when possible and collapsing concurrent generation of the
// same character to one OpenAI call. It returns the profile, the source
// ("db"|"openai"), and an error when generation failed.
func Generate(repo storage.Repository, name, description string) (*game.CharacterProfile, string, error) {
	key := keys.CharacterKey(name, description)

	if cached, err := repo.GetCachedCharacter(key); err == nil && cached != nil && len(cached.SheetJSON) > 0 {
		var profile game.CharacterProfile
		if err := json.Unmarshal(cached.SheetJSON, &profile); err == nil {
			logging.Info("character cache hit", logging.Fields{constants.LogFieldKey: key, constants.LogFieldSource: "db"})
			return &profile, "db", nil
		}
	}

	type genRes struct {
		Profile *game.CharacterProfile
		Source  string
	}

	ch := dedupe.CharacterGroup.DoChan(key, func() (interface{}, error) {
		// Re-check the cache inside the singleflight function in case
		// another goroutine saved the sheet before we got here.
		if cached, err := repo.GetCachedCharacter(key); err == nil && cached != nil && len(cached.SheetJSON) > 0 {
			var profile game.CharacterProfile
			if err := json.Unmarshal(cached.SheetJSON, &profile); err == nil {
				return genRes{Profile: &profile, Source: "db"}, nil
			}
		}

		profile, err := callOpenAI(name, description)
		if err != nil {
			logging.Error("character generation failed", err, logging.Fields{constants.LogFieldKey: key})
			return genRes{}, err
		}
		logging.Info("character generated", logging.Fields{constants.LogFieldKey: key, constants.LogFieldName: profile.Name})

		sheet, err := json.Marshal(profile)
		if err == nil {
			record := &game.CharacterRecord{
				CharacterKey: key,
				Name:         profile.Name,
				Description:  profile.Description,
				SheetJSON:    sheet,
			}
			if err := repo.SaveCachedCharacter(record); err != nil {
				logging.Error("failed to cache character sheet", err, logging.Fields{constants.LogFieldKey: key})
			}
		}
		return genRes{Profile: profile, Source: "openai"}, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, "openai_error", r.Err
		}
		if rr, ok := r.Val.(genRes); ok {
			return rr.Profile, rr.Source, nil
		}
		return nil, "openai_error", fmt.Errorf("unexpected result type from singleflight")
	case <-time.After(90 * time.Second):
		logging.Error("character generation timed out", fmt.Errorf("timeout"), logging.Fields{constants.LogFieldKey: key})
		return nil, "timeout", fmt.Errorf("timed out waiting for character generation")
	}
}
