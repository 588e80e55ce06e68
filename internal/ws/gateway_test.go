package ws

import (
	"encoding/json"
	"testing"

	"github.com/JonathanSaleh123/boss-hunter/internal/session"
)

func drain(c *conn) []session.ServerMessage {
	var out []session.ServerMessage
	for {
		select {
		case data := <-c.send:
			var msg session.ServerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				panic(err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestPublishRoomPreservesOrder(t *testing.T) {
	g := NewGateway()
	a := g.register("arena", "conn-a", nil)
	b := g.register("arena", "conn-b", nil)
	g.register("other", "conn-c", nil)

	g.PublishRoom("arena", session.ServerMessage{Type: "first"})
	g.PublishRoom("arena", session.ServerMessage{Type: "second"})

	for _, c := range []*conn{a, b} {
		msgs := drain(c)
		if len(msgs) != 2 || msgs[0].Type != "first" || msgs[1].Type != "second" {
			t.Fatalf("connection %s got %+v", c.id, msgs)
		}
	}
	g.mu.RLock()
	other := g.conns["conn-c"]
	g.mu.RUnlock()
	if got := drain(other); len(got) != 0 {
		t.Fatalf("cross-room leak: %+v", got)
	}
}

func TestPublishConnTargetsOneConnection(t *testing.T) {
	g := NewGateway()
	a := g.register("arena", "conn-a", nil)
	b := g.register("arena", "conn-b", nil)

	g.PublishConn("conn-a", session.ServerMessage{Type: session.MsgInitialState})
	if msgs := drain(a); len(msgs) != 1 || msgs[0].Type != session.MsgInitialState {
		t.Fatalf("target connection got %+v", msgs)
	}
	if msgs := drain(b); len(msgs) != 0 {
		t.Fatalf("other connection got %+v", msgs)
	}
}

func TestSlowClientIsDisconnected(t *testing.T) {
	g := NewGateway()
	c := g.register("arena", "conn-a", nil)
	for i := 0; i <= sendBuffer; i++ {
		g.PublishRoom("arena", session.ServerMessage{Type: "tick"})
	}
	g.mu.RLock()
	_, stillThere := g.conns["conn-a"]
	g.mu.RUnlock()
	if stillThere {
		t.Fatal("slow client was not dropped")
	}
	// Its channel must be closed so the write pump exits.
	drained := 0
	for {
		_, ok := <-c.send
		if !ok {
			break
		}
		drained++
		if drained > sendBuffer {
			t.Fatal("send channel never closed after drop")
		}
	}
}

func TestPublishToDisconnectedConnIsNoop(t *testing.T) {
	g := NewGateway()
	c := g.register("arena", "conn-a", nil)

	// A publisher snapshots room membership before enqueueing, so it can
	// still hold this conn after the read pump tore it down.
	if !g.unregister(c) {
		t.Fatal("first unregister reported no-op")
	}
	if g.unregister(c) {
		t.Fatal("second unregister was not idempotent")
	}
	if c.enqueue([]byte(`{}`)) {
		t.Fatal("enqueue accepted a frame on a closed connection")
	}

	g.PublishRoom("arena", session.ServerMessage{Type: "tick"})
	g.PublishConn("conn-a", session.ServerMessage{Type: "tick"})

	g.mu.RLock()
	_, inConns := g.conns["conn-a"]
	_, inRooms := g.rooms["arena"]
	g.mu.RUnlock()
	if inConns || inRooms {
		t.Fatal("disconnected conn left gateway state behind")
	}
}

func TestConcurrentPublishAndUnregister(t *testing.T) {
	g := NewGateway()
	for i := 0; i < 64; i++ {
		c := g.register("arena", "conn-a", nil)
		done := make(chan struct{})
		go func() {
			g.PublishRoom("arena", session.ServerMessage{Type: "tick"})
			close(done)
		}()
		g.unregister(c)
		<-done
	}
}

func TestValidRoomID(t *testing.T) {
	good := []string{"a", "raid-1", "Boss_Room_42", "x"}
	for _, id := range good {
		if !validRoomID(id) {
			t.Errorf("validRoomID(%q) = false", id)
		}
	}
	bad := []string{"", "has space", "slash/room", "ünïcode", string(make([]byte, 65))}
	for _, id := range bad {
		if validRoomID(id) {
			t.Errorf("validRoomID(%q) = true", id)
		}
	}
}
