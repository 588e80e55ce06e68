package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JonathanSaleh123/boss-hunter/internal/charactergen"
	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
)

type CharacterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CharacterResponse struct {
	Source    string `json:"source"`
	Character any    `json:"character"`
}

// GenerateCharacter produces a full character sheet for a name and free-text
// description. Cached sheets are served from the database.
func (h *Handler) GenerateCharacter(c *gin.Context) {
	if !charactergen.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrCharacterGenOff})
		return
	}
	var req CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" || req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	profile, source, err := charactergen.Generate(h.repo, req.Name, req.Description)
	if err != nil {
		logging.Error("character generation request failed", err, logging.Fields{constants.LogFieldName: req.Name})
		c.JSON(http.StatusBadGateway, gin.H{constants.JSONKeyError: constants.ErrFailedGenerate})
		return
	}
	c.JSON(http.StatusOK, CharacterResponse{Source: source, Character: profile})
}

// GetCharacterImage serves the PNG portrait for a character identified by
// the name and description query parameters. Portraits are generated on the
// first request and cached in the database.
func (h *Handler) GetCharacterImage(c *gin.Context) {
	if !charactergen.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrCharacterGenOff})
		return
	}
	name := strings.TrimSpace(c.Query("name"))
	description := strings.TrimSpace(c.Query("description"))
	if name == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	png, _, err := charactergen.GeneratePortrait(h.repo, name, description)
	if err != nil {
		logging.Error("portrait request failed", err, logging.Fields{constants.LogFieldName: name})
		c.JSON(http.StatusBadGateway, gin.H{constants.JSONKeyError: constants.ErrFailedImage})
		return
	}
	c.Header(constants.HeaderContentType, constants.ContentTypePNG)
	c.Header(constants.CacheControlHeader, constants.CacheControlNoCache)
	c.Writer.WriteHeader(http.StatusOK)
	_, _ = c.Writer.Write(png)
}
