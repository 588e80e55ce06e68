package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
)

// GetRecentBattles returns the newest finished battles, newest first. The
// optional ?limit= query caps the count.
func (h *Handler) GetRecentBattles(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 20)
	records, err := h.repo.GetRecentBattles(limit)
	if err != nil {
		logging.Error("failed to list battles", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedListBattles})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetLeaderboard returns the top hunters by victories.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 10)
	stats, err := h.repo.GetTopHunters(limit)
	if err != nil {
		logging.Error("failed to load leaderboard", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedLeaderboard})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 100 {
		return def
	}
	return n
}
