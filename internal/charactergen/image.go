package charactergen

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/dedupe"
	"github.com/JonathanSaleh123/boss-hunter/internal/imageutil"
	"github.com/JonathanSaleh123/boss-hunter/internal/keys"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
	"github.com/JonathanSaleh123/boss-hunter/internal/storage"
)

// imagePromptTemplate can be set at application startup to customize the
// portrait generation prompt. Use the tokens "{{name}}" and "{{description}}"
// where those values will be substituted.
var imagePromptTemplate string

// SetImagePromptTemplate sets a custom portrait prompt template. Call from
// main after loading configuration.
func SetImagePromptTemplate(t string) {
	imagePromptTemplate = strings.TrimSpace(t)
}

const defaultImagePrompt = `A portrait of {{name}}, a boss hunter: {{description}}. Dark-fantasy illustration style, dramatic lighting, head and shoulders framing, no text or logos.`

// portraitSize is the stored rendition; the API returns larger images.
const portraitSize = 256

// callOpenAIImage invokes the images API and returns the raw PNG bytes.
func callOpenAIImage(name, description string) ([]byte, error) {
	apiKey := os.Getenv(constants.EnvOpenAIAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s not set", constants.EnvOpenAIAPIKey)
	}

	prompt := imagePromptTemplate
	if prompt == "" {
		prompt = defaultImagePrompt
	}
	prompt = strings.ReplaceAll(prompt, "{{name}}", name)
	prompt = strings.ReplaceAll(prompt, "{{description}}", description)

	payload := map[string]interface{}{
		"prompt":  prompt,
		"n":       1,
		"size":    constants.OpenAIImageSizeDefault,
		"model":   constants.OpenAIImageModel,
		"quality": constants.OpenAIImageQualityDefault,
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", baseURL+constants.OpenAIImagesGenerationsPath, bytes.NewBuffer(b))
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai image error: %d %s", resp.StatusCode, string(body))
	}

	var out struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai returned no image data")
	}
	imgBytes, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return imgBytes, nil
}

// GeneratePortrait returns the PNG portrait for (name, description), serving
// from the DB cache when possible and collapsing concurrent generation of
// the same portrait to one OpenAI call. It returns the bytes and the source
// ("db"|"openai").
func GeneratePortrait(repo storage.Repository, name, description string) ([]byte, string, error) {
	key := keys.CharacterKey(name, description)

	if png, err := repo.GetCharacterPortrait(key); err == nil && len(png) > 0 {
		logging.Info("portrait cache hit", logging.Fields{constants.LogFieldKey: key, constants.LogFieldSource: "db"})
		return png, "db", nil
	}

	ch := dedupe.ImageGroup.DoChan(key, func() (interface{}, error) {
		if png, err := repo.GetCharacterPortrait(key); err == nil && len(png) > 0 {
			return png, nil
		}

		raw, err := callOpenAIImage(name, description)
		if err != nil {
			logging.Error("portrait generation failed", err, logging.Fields{constants.LogFieldKey: key})
			return nil, err
		}
		out, err := imageutil.ResizePNGBytes(raw, portraitSize, portraitSize)
		if err != nil {
			return nil, err
		}
		if err := repo.SaveCharacterPortrait(key, out); err != nil {
			logging.Error("failed to cache portrait", err, logging.Fields{constants.LogFieldKey: key})
		}
		logging.Info("portrait generated", logging.Fields{constants.LogFieldKey: key, constants.LogFieldName: name})
		return out, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, "openai_error", r.Err
		}
		if png, ok := r.Val.([]byte); ok {
			return png, "openai", nil
		}
		return nil, "openai_error", fmt.Errorf("unexpected result type from singleflight")
	case <-time.After(90 * time.Second):
		logging.Error("portrait generation timed out", fmt.Errorf("timeout"), logging.Fields{constants.LogFieldKey: key})
		return nil, "timeout", fmt.Errorf("timed out waiting for portrait generation")
	}
}
