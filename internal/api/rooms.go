package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// ListRooms returns a snapshot of every live room, sorted by id for stable
// output.
func (h *Handler) ListRooms(c *gin.Context) {
	infos := h.registry.List()
	sort.Slice(infos, func(i, j int) bool { return infos[i].RoomID < infos[j].RoomID })
	c.JSON(http.StatusOK, infos)
}
