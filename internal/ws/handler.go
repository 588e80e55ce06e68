package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
	"github.com/JonathanSaleh123/boss-hunter/internal/registry"
	"github.com/JonathanSaleh123/boss-hunter/internal/session"
)

// Handler upgrades websocket requests and bridges them to room sessions.
type Handler struct {
	gateway  *Gateway
	registry *registry.Registry
	upgrader websocket.Upgrader
}

func NewHandler(gateway *Gateway, reg *registry.Registry) *Handler {
	return &Handler{
		gateway:  gateway,
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws/:roomID. It blocks on the read pump until the client
// disconnects.
func (h *Handler) Serve(c *gin.Context) {
	roomID := c.Param("roomID")
	if !validRoomID(roomID) {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRoomID})
		return
	}
	sock, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", err, logging.Fields{constants.LogFieldRoomID: roomID})
		return
	}

	connID := uuid.NewString()
	cn := h.gateway.register(roomID, connID, sock)
	go cn.writePump()
	h.readPump(cn)
}

func (h *Handler) readPump(cn *conn) {
	defer h.gateway.unregister(cn)

	cn.sock.SetReadLimit(maxMessageSize)
	cn.sock.SetReadDeadline(time.Now().Add(pongWait))
	cn.sock.SetPongHandler(func(string) error {
		cn.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var sess *session.Session
	defer func() {
		if sess != nil {
			sess.Leave(cn.id)
		}
	}()

	for {
		_, data, err := cn.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("websocket closed unexpectedly", logging.Fields{
					constants.LogFieldRoomID: cn.roomID,
					constants.LogFieldConnID: cn.id,
					"reason":                 err.Error(),
				})
			}
			return
		}
		var cmd session.ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.sendError(cn, "malformed command")
			continue
		}

		switch cmd.Type {
		case session.CmdJoinRoom:
			if sess != nil {
				h.sendError(cn, "already joined")
				continue
			}
			if cmd.Profile == nil {
				h.sendError(cn, "join_room requires a character_profile")
				continue
			}
			target := h.registry.GetOrCreate(cn.roomID)
			if err := target.Join(cn.id, *cmd.Profile); err != nil {
				h.sendError(cn, err.Error())
				continue
			}
			sess = target
		case session.CmdSubmitAction:
			if sess == nil {
				h.sendError(cn, "join a room first")
				continue
			}
			sess.SubmitAction(cn.id, cmd.Text)
		case session.CmdStartGame:
			if sess == nil {
				h.sendError(cn, "join a room first")
				continue
			}
			sess.Start(cn.id)
		case session.CmdRestartGame:
			if sess == nil {
				h.sendError(cn, "join a room first")
				continue
			}
			sess.Restart(cn.id)
		default:
			h.sendError(cn, "unknown command type")
		}
	}
}

func (h *Handler) sendError(cn *conn, text string) {
	h.gateway.PublishConn(cn.id, session.ServerMessage{
		Type: session.MsgError,
		Data: session.ErrorPayload{Error: text},
	})
}

// validRoomID accepts 1..64 chars of letters, digits, dash and underscore.
func validRoomID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
