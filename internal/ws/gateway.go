// Package ws is the realtime transport: it upgrades websocket connections,
// decodes client commands into the owning room session and fans committed
// events back out. Each connection gets a buffered send channel drained by
// its own write pump, so a slow client never blocks a room.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
	"github.com/JonathanSaleh123/boss-hunter/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 32
)

// conn is one attached websocket. Messages are queued on send and written
// by a single write pump; the pump exits when send is closed. mu guards
// send against the channel being closed mid-enqueue, since publishers hold
// conn references outside the gateway lock.
type conn struct {
	id     string
	roomID string
	sock   *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues a frame. It reports false when the connection is already
// closed or the client cannot keep up.
func (c *conn) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close marks the connection dead and closes its send channel. It reports
// whether this call was the one that closed it.
func (c *conn) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Gateway tracks which connections are attached to which room and implements
// session.Publisher. Sessions publish through it strictly serially per room,
// and each connection's channel preserves that order.
type Gateway struct {
	mu    sync.RWMutex
	conns map[string]*conn
	rooms map[string]map[string]*conn
}

func NewGateway() *Gateway {
	return &Gateway{
		conns: map[string]*conn{},
		rooms: map[string]map[string]*conn{},
	}
}

func (g *Gateway) register(roomID, connID string, sock *websocket.Conn) *conn {
	c := &conn{
		id:     connID,
		roomID: roomID,
		sock:   sock,
		send:   make(chan []byte, sendBuffer),
	}
	g.mu.Lock()
	g.conns[connID] = c
	room := g.rooms[roomID]
	if room == nil {
		room = map[string]*conn{}
		g.rooms[roomID] = room
	}
	room[connID] = c
	g.mu.Unlock()
	return c
}

// unregister detaches the connection and closes its send channel. It reports
// whether this call actually tore the connection down; later calls, and
// publishes racing them, are no-ops.
func (g *Gateway) unregister(c *conn) bool {
	if !c.close() {
		return false
	}
	g.mu.Lock()
	delete(g.conns, c.id)
	if room := g.rooms[c.roomID]; room != nil {
		delete(room, c.id)
		if len(room) == 0 {
			delete(g.rooms, c.roomID)
		}
	}
	g.mu.Unlock()
	return true
}

// deliver hands data to one connection, tearing it down when its buffer is
// full.
func (g *Gateway) deliver(c *conn, data []byte) {
	if c.enqueue(data) {
		return
	}
	if g.unregister(c) {
		logging.Warn("dropping slow websocket client", logging.Fields{
			constants.LogFieldRoomID: c.roomID,
			constants.LogFieldConnID: c.id,
		})
	}
}

// PublishRoom delivers a message to every connection attached to roomID in
// the order the session produced it.
func (g *Gateway) PublishRoom(roomID string, msg session.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to encode room message", err, logging.Fields{constants.LogFieldRoomID: roomID})
		return
	}
	g.mu.RLock()
	targets := make([]*conn, 0, len(g.rooms[roomID]))
	for _, c := range g.rooms[roomID] {
		targets = append(targets, c)
	}
	g.mu.RUnlock()
	for _, c := range targets {
		g.deliver(c, data)
	}
}

// PublishConn delivers a message to a single connection.
func (g *Gateway) PublishConn(connID string, msg session.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to encode connection message", err, logging.Fields{constants.LogFieldConnID: connID})
		return
	}
	g.mu.RLock()
	c := g.conns[connID]
	g.mu.RUnlock()
	if c != nil {
		g.deliver(c, data)
	}
}
